package commit

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Tag template placeholders.
const (
	PlaceholderYear      = "YYYY"
	PlaceholderShortYear = "YY"
	PlaceholderMonth     = "MM"
	PlaceholderDay       = "DD"
	PlaceholderSeq       = "N"
)

// TagTemplate is a tag format with its date placeholders resolved.
type TagTemplate struct {
	base   string
	prefix string
	suffix string
	hasSeq bool
	re     *regexp.Regexp
}

// NewTagTemplate resolves the date placeholders in tmpl using today. The
// sequence placeholder is the last N left in the template.
func NewTagTemplate(tmpl string, today time.Time) (*TagTemplate, error) {
	if tmpl == "" {
		return nil, errors.New("commit: tag format is empty")
	}

	base := strings.NewReplacer(PlaceholderYear, today.Format("2006")).Replace(tmpl)
	base = strings.NewReplacer(
		PlaceholderShortYear, today.Format("06"),
		PlaceholderMonth, today.Format("01"),
		PlaceholderDay, today.Format("02"),
	).Replace(base)

	t := &TagTemplate{base: base}
	i := strings.LastIndex(base, PlaceholderSeq)
	if i < 0 {
		return t, nil
	}
	t.hasSeq = true
	t.prefix = base[:i]
	t.suffix = base[i+len(PlaceholderSeq):]

	re, err := regexp.Compile(`^` + regexp.QuoteMeta(t.prefix) + `(\d+)` + regexp.QuoteMeta(t.suffix) + `$`)
	if err != nil {
		return nil, fmt.Errorf("commit: tag format %q: %w", tmpl, err)
	}
	t.re = re
	return t, nil
}

// Base is the template with dates resolved and the sequence placeholder left
// in place.
func (t *TagTemplate) Base() string { return t.base }

// Match reports the sequence number of tag if it was generated from this
// template.
func (t *TagTemplate) Match(tag string) (int, bool) {
	if !t.hasSeq {
		return 0, false
	}
	m := t.re.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Next returns the tag following the highest-numbered matching tag in
// existing, or sequence 1 when none match.
func (t *TagTemplate) Next(existing []string) string {
	if !t.hasSeq {
		return t.base
	}
	max := 0
	for _, tag := range existing {
		if n, ok := t.Match(tag); ok && n > max {
			max = n
		}
	}
	return t.prefix + strconv.Itoa(max+1) + t.suffix
}

// NextTag generates the next tag name for template given the existing tag
// names. today is read once so every date placeholder agrees.
func NextTag(existing []string, template string, today time.Time) (string, error) {
	t, err := NewTagTemplate(template, today)
	if err != nil {
		return "", err
	}
	return t.Next(existing), nil
}
