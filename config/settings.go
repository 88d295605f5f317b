package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/imdario/mergo"
)

const (
	FormatMarkdown = "markdown"
	FormatPlain    = "plain"

	VCSCLI   = "cli"
	VCSGoGit = "go-git"
)

// Settings are read from the global and local settings files. They are
// loaded once at startup and passed by value afterwards.
type Settings struct {
	DefaultBranches     []string          `json:"default_branches,omitempty"`
	CommitMessageFormat string            `json:"commit_message_format,omitempty"`
	TicketPattern       string            `json:"ticket_pattern,omitempty"`
	TagFormat           string            `json:"tag_format,omitempty"`
	ProjectName         string            `json:"project_name,omitempty"`
	ProjectAliases      map[string]string `json:"project_aliases,omitempty"`
	MessageFormat       string            `json:"message_format,omitempty"`
	TemplatesDir        string            `json:"templates_dir,omitempty"`
	VCS                 string            `json:"vcs,omitempty"`
	Connectors          ConnectorSettings `json:"connectors"`
	AI                  AISettings        `json:"ai"`
}

// ConnectorSettings selects a ticket tracker and holds the options of every
// configured tracker, keyed by tracker type:
//
//	connectors:
//	  type: jira
//	  jira:
//	    api_url: https://example.atlassian.net
//	    username: me@example.com
//	    api_key: xxxx
type ConnectorSettings struct {
	Type     string
	Trackers map[string]map[string]string
}

// Options returns the options for the named tracker, never nil.
func (c ConnectorSettings) Options(kind string) map[string]string {
	return cloneStrings(c.Trackers[kind])
}

func (c ConnectorSettings) MarshalJSON() ([]byte, error) {
	return marshalSection("type", c.Type, c.Trackers)
}

func (c *ConnectorSettings) UnmarshalJSON(b []byte) error {
	var err error
	c.Type, c.Trackers, err = unmarshalSection("type", b)
	return err
}

// AISettings selects the provider used to summarize a release, if any.
type AISettings struct {
	Provider  string
	Providers map[string]map[string]string
}

func (a AISettings) Options(provider string) map[string]string {
	return cloneStrings(a.Providers[provider])
}

func (a AISettings) MarshalJSON() ([]byte, error) {
	return marshalSection("provider", a.Provider, a.Providers)
}

func (a *AISettings) UnmarshalJSON(b []byte) error {
	var err error
	a.Provider, a.Providers, err = unmarshalSection("provider", b)
	return err
}

func marshalSection(key, selector string, variants map[string]map[string]string) ([]byte, error) {
	m := make(map[string]interface{}, len(variants)+1)
	m[key] = selector
	for name, opts := range variants {
		m[name] = opts
	}
	return json.Marshal(m)
}

func unmarshalSection(key string, b []byte) (string, map[string]map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return "", nil, err
	}
	if raw == nil {
		return "", nil, nil
	}

	var selector string
	var variants map[string]map[string]string
	for name, val := range raw {
		if name == key {
			if err := json.Unmarshal(val, &selector); err != nil {
				return "", nil, fmt.Errorf("%s: expected a string: %w", key, err)
			}
			continue
		}

		var opts map[string]interface{}
		if err := json.Unmarshal(val, &opts); err != nil {
			return "", nil, fmt.Errorf("%s: expected a mapping: %w", name, err)
		}
		strOpts := make(map[string]string, len(opts))
		for k, v := range opts {
			switch v := v.(type) {
			case nil:
				strOpts[k] = ""
			case string:
				strOpts[k] = v
			default:
				strOpts[k] = fmt.Sprint(v)
			}
		}
		if variants == nil {
			variants = make(map[string]map[string]string)
		}
		variants[name] = strOpts
	}
	return selector, variants, nil
}

// ParseSettings decodes a YAML settings document.
func ParseSettings(b []byte) (Settings, error) {
	s := Settings{}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Merge overlays local onto global. Every non-empty top-level value in local
// wins. For the connectors and ai sections the selector from local wins if
// set, and each variant's options are overlaid key by key.
func Merge(global, local Settings) (Settings, error) {
	merged := global.Clone()

	overlay := local
	overlay.ProjectAliases = nil
	overlay.Connectors = ConnectorSettings{}
	overlay.AI = AISettings{}
	if err := mergo.Merge(&merged, overlay, mergo.WithOverride); err != nil {
		return Settings{}, err
	}

	if local.ProjectAliases != nil {
		merged.ProjectAliases = cloneStrings(local.ProjectAliases)
	}

	var err error
	merged.Connectors.Type, merged.Connectors.Trackers, err = mergeSection(
		merged.Connectors.Type, merged.Connectors.Trackers,
		local.Connectors.Type, local.Connectors.Trackers,
	)
	if err != nil {
		return Settings{}, err
	}
	merged.AI.Provider, merged.AI.Providers, err = mergeSection(
		merged.AI.Provider, merged.AI.Providers,
		local.AI.Provider, local.AI.Providers,
	)
	if err != nil {
		return Settings{}, err
	}
	return merged, nil
}

// overrideEmpty sets the top-level values that doc names explicitly but
// leaves empty, which Merge skips. An empty default_branches list then
// replaces the global one, for example. The connectors and ai sections are
// merged per variant and are left alone.
func overrideEmpty(merged, local Settings, doc []byte) (Settings, error) {
	var keys map[string]interface{}
	if err := yaml.Unmarshal(doc, &keys); err != nil {
		return Settings{}, err
	}

	mv := reflect.ValueOf(&merged).Elem()
	lv := reflect.ValueOf(local)
	typ := mv.Type()
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name == "connectors" || name == "ai" {
			continue
		}
		if _, ok := keys[name]; !ok || !isEmpty(lv.Field(i)) {
			continue
		}
		mv.Field(i).Set(lv.Field(i))
	}
	return merged, nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

func mergeSection(selector string, variants map[string]map[string]string, localSelector string, localVariants map[string]map[string]string) (string, map[string]map[string]string, error) {
	if localSelector != "" {
		selector = localSelector
	}
	for name, opts := range localVariants {
		if variants == nil {
			variants = make(map[string]map[string]string)
		}
		dst := variants[name]
		if dst == nil {
			dst = make(map[string]string, len(opts))
		}
		if err := mergo.Merge(&dst, opts, mergo.WithOverride); err != nil {
			return "", nil, fmt.Errorf("merge %s settings: %w", name, err)
		}
		variants[name] = dst
	}
	return selector, variants, nil
}

// Clone returns a deep copy so merges never touch the receiver's maps.
func (s Settings) Clone() Settings {
	c := s
	if s.DefaultBranches != nil {
		c.DefaultBranches = append([]string(nil), s.DefaultBranches...)
	}
	if s.ProjectAliases != nil {
		c.ProjectAliases = cloneStrings(s.ProjectAliases)
	}
	c.Connectors.Trackers = cloneVariants(s.Connectors.Trackers)
	c.AI.Providers = cloneVariants(s.AI.Providers)
	return c
}

func (s Settings) Validate() error {
	if s.TicketPattern == "" {
		return fmt.Errorf("ticket_pattern: must not be empty")
	}
	if _, err := regexp.Compile(s.TicketPattern); err != nil {
		return fmt.Errorf("ticket_pattern: %w", err)
	}
	if s.TagFormat == "" {
		return fmt.Errorf("tag_format: must not be empty")
	}
	if s.TemplatesDir == "" {
		return fmt.Errorf("templates_dir: must not be empty")
	}
	if err := ValidateFormat(s.MessageFormat); err != nil {
		return fmt.Errorf("message_format: %w", err)
	}
	switch s.VCS {
	case "", VCSCLI, VCSGoGit:
	default:
		return fmt.Errorf("vcs: unknown backend %q (expected %q or %q)", s.VCS, VCSCLI, VCSGoGit)
	}
	return nil
}

// TicketRE compiles the ticket pattern. Settings are validated on load, so
// this only fails for settings built by hand.
func (s Settings) TicketRE() (*regexp.Regexp, error) {
	return regexp.Compile(s.TicketPattern)
}

func (s Settings) IsDefaultBranch(branch string) bool {
	return oneOf(branch, s.DefaultBranches)
}

// YAML renders the settings as they would appear in a settings file.
func (s Settings) YAML() (string, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ValidateFormat(format string) error {
	switch format {
	case FormatMarkdown, FormatPlain:
		return nil
	}
	return fmt.Errorf("unknown format %q (expected %q or %q)", format, FormatMarkdown, FormatPlain)
}

func oneOf(s string, l []string) bool {
	for _, cand := range l {
		if s == cand {
			return true
		}
	}
	return false
}

func cloneStrings(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneVariants(m map[string]map[string]string) map[string]map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]map[string]string, len(m))
	for k, v := range m {
		c[k] = cloneStrings(v)
	}
	return c
}

// VariantNames lists the configured variants in a section, sorted.
func VariantNames(variants map[string]map[string]string) []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
