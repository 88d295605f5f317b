package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/jeffrom/git-release/render"
)

// Paths locates the settings files.
type Paths struct {
	Global string
	Local  string
}

func DefaultPaths() Paths {
	return Paths{
		Global: filepath.Join(GlobalDir(), globalFile),
		Local:  LocalFile,
	}
}

// Report describes what Resolve read and wrote. Warnings are problems that
// were recovered from by falling back to defaults.
type Report struct {
	Paths         Paths
	GlobalCreated bool
	GlobalContent []byte
	LocalFound    bool
	LocalContent  []byte
	Templates     []string
	Warnings      []error
}

func (r *Report) warn(err error) {
	r.Warnings = append(r.Warnings, err)
}

// Resolve loads the global settings file, creating it with defaults when it
// doesn't exist, and merges the optional local file over it. A file that
// can't be parsed or validated is reported and replaced by its fallback:
// defaults for the global file, nothing for the local one. The templates
// directory is created and populated with the default templates if needed.
func Resolve(paths Paths) (Settings, *Report) {
	rep := &Report{Paths: paths}
	defaults := GetDefault()
	global := defaults

	b, err := os.ReadFile(paths.Global)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if werr := WriteSettings(paths.Global, defaults); werr != nil {
			rep.warn(fmt.Errorf("create global settings: %w", werr))
		} else {
			rep.GlobalCreated = true
		}
	case err != nil:
		rep.warn(fmt.Errorf("read global settings: %w; using defaults", err))
	default:
		rep.GlobalContent = b
		s, perr := parseOver(defaults, b)
		if perr != nil {
			rep.warn(fmt.Errorf("error loading %s: %w; using default settings", paths.Global, perr))
		} else {
			global = s
		}
	}

	settings := global
	if paths.Local != "" {
		b, err := os.ReadFile(paths.Local)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			rep.warn(fmt.Errorf("read local settings: %w; ignoring it", err))
		default:
			rep.LocalFound = true
			rep.LocalContent = b
			s, perr := parseOver(global, b)
			if perr != nil {
				rep.warn(fmt.Errorf("error loading %s: %w; ignoring it", paths.Local, perr))
			} else {
				settings = s
			}
		}
	}

	settings.TemplatesDir = ExpandHome(settings.TemplatesDir)
	created, err := EnsureTemplates(settings.TemplatesDir)
	if err != nil {
		rep.warn(fmt.Errorf("create templates: %w", err))
	}
	rep.Templates = created
	return settings, rep
}

func parseOver(base Settings, b []byte) (Settings, error) {
	s, err := ParseSettings(b)
	if err != nil {
		return Settings{}, err
	}
	merged, err := Merge(base, s)
	if err != nil {
		return Settings{}, err
	}
	merged, err = overrideEmpty(merged, s, b)
	if err != nil {
		return Settings{}, err
	}
	if err := merged.Validate(); err != nil {
		return Settings{}, err
	}
	return merged, nil
}

// WriteSettings writes s as YAML to p, creating parent directories.
func WriteSettings(p string, s interface{}) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(p); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(p, b, 0644)
}

// LocalSettings is the document written by the init command.
type LocalSettings struct {
	ProjectName string            `json:"project_name"`
	Connectors  ConnectorSettings `json:"connectors"`
}

// WriteLocal creates the local settings file at p. It returns fs.ErrExist if
// the file is already there.
func WriteLocal(p, projectName string) error {
	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("%s: %w", p, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return WriteSettings(p, LocalSettings{ProjectName: projectName})
}

// EnsureTemplates creates dir and writes a default template for each built-in
// format that doesn't have a template file yet. Existing files are never
// touched. It returns the paths it created.
func EnsureTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var created []string
	for _, format := range []string{FormatMarkdown, FormatPlain} {
		p := render.TemplatePath(dir, format)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return created, err
		}
		_, werr := f.WriteString(render.DefaultTemplate(format))
		cerr := f.Close()
		if werr != nil {
			return created, werr
		}
		if cerr != nil {
			return created, cerr
		}
		created = append(created, p)
	}
	return created, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
