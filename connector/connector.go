// Package connector enriches ticket identifiers with details from an external
// ticket tracker.
package connector

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jeffrom/git-release/model"
)

// DefaultTimeout bounds every request made to a tracker.
const DefaultTimeout = 10 * time.Second

// Connector is a ticket tracker client. Connectors never fail: an
// unreachable tracker yields no details, and a failed lookup yields a
// placeholder entry for that ticket.
type Connector interface {
	// Name is the tracker type, as used in settings.
	Name() string
	// ValidateConnection makes a cheap authenticated request and reports
	// whether it succeeded.
	ValidateConnection(ctx context.Context) bool
	// TicketDetails looks up each ticket. If the connection can't be
	// validated the result is empty, otherwise every requested id has an
	// entry.
	TicketDetails(ctx context.Context, ids []string) map[string]model.Ticket
}

type options struct {
	client *http.Client
	getenv func(string) string
}

type Option func(o *options)

// WithHTTPClient sets the http client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithGetenv sets the function used to read credentials from the
// environment.
func WithGetenv(fn func(string) string) Option {
	return func(o *options) { o.getenv = fn }
}

type factory func(settings map[string]string, o options) Connector

var registry = map[string]factory{
	JiraType: newJira,
}

// Types returns the known tracker types, sorted.
func Types() []string {
	types := make([]string, 0, len(registry))
	for name := range registry {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// New returns the connector for the tracker type kind configured with
// settings. An empty kind means no tracker is configured and returns nil.
func New(kind string, settings map[string]string, opts ...Option) (Connector, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return nil, nil
	}
	fn, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("connector: unknown tracker type %q (known types: %s)", kind, strings.Join(Types(), ", "))
	}

	o := options{
		client: &http.Client{Timeout: DefaultTimeout},
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return fn(settings, o), nil
}
