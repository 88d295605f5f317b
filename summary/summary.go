// Package summary condenses ticket titles into a short release note using a
// hosted language model.
package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a summary request.
const DefaultTimeout = 30 * time.Second

// MaxWords is the requested upper bound on summary length.
const MaxWords = 50

// ErrNoAPIKey is returned by New when the provider has no credential.
var ErrNoAPIKey = errors.New("summary: api key not provided")

// Summarizer produces a short summary of a list of lines.
type Summarizer interface {
	Summarize(ctx context.Context, lines []string) (string, error)
}

type options struct {
	client  *http.Client
	baseURL string
	getenv  func(string) string
}

type Option func(o *options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithBaseURL overrides the provider's API endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

func WithGetenv(fn func(string) string) Option {
	return func(o *options) { o.getenv = fn }
}

// New returns the summarizer for provider. An empty provider returns nil.
func New(provider string, settings map[string]string, opts ...Option) (Summarizer, error) {
	o := options{
		client: &http.Client{Timeout: DefaultTimeout},
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "":
		return nil, nil
	case OpenAIProvider:
		c, err := newOpenAI(settings, o)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("summary: unknown provider %q", provider)
	}
}

// Prompt builds the instruction sent to the model.
func Prompt(lines []string) string {
	return fmt.Sprintf("Summarize the following ticket titles into a concise release note (maximum %d words):\n\n%s\n\nDon't start text with title. Don't use any apostrophe symbols.",
		MaxWords, strings.Join(lines, "\n"))
}
