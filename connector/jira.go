package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeffrom/git-release/model"
)

const (
	JiraType = "jira"

	// JiraTokenEnv is read when the jira settings have no api_key.
	JiraTokenEnv = "JIRA_API_TOKEN"
)

const (
	StatusUnknown = "Unknown"
	StatusError   = "Error"

	titleUnavailable = "Could not fetch ticket details"
)

// Jira looks up issues with the Jira Cloud REST API, authenticating with a
// username and API token.
type Jira struct {
	apiURL   string
	username string
	apiKey   string
	client   *http.Client
}

func newJira(settings map[string]string, o options) Connector {
	apiKey := settings["api_key"]
	if apiKey == "" {
		apiKey = o.getenv(JiraTokenEnv)
	}
	return &Jira{
		apiURL:   strings.TrimRight(settings["api_url"], "/"),
		username: settings["username"],
		apiKey:   apiKey,
		client:   o.client,
	}
}

func (j *Jira) Name() string { return JiraType }

func (j *Jira) ValidateConnection(ctx context.Context) bool {
	if j.apiURL == "" || j.username == "" || j.apiKey == "" {
		return false
	}
	resp, err := j.get(ctx, "/rest/api/3/myself")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (j *Jira) TicketDetails(ctx context.Context, ids []string) map[string]model.Ticket {
	res := make(map[string]model.Ticket)
	if len(ids) == 0 || !j.ValidateConnection(ctx) {
		return res
	}
	for _, id := range ids {
		res[id] = j.ticket(ctx, id)
	}
	return res
}

type jiraIssue struct {
	Fields struct {
		Summary *string `json:"summary"`
		Status  *struct {
			Name *string `json:"name"`
		} `json:"status"`
	} `json:"fields"`
}

func (j *Jira) ticket(ctx context.Context, id string) model.Ticket {
	t := model.Ticket{ID: id, URL: j.apiURL + "/browse/" + id}

	resp, err := j.get(ctx, "/rest/api/3/issue/"+url.PathEscape(id))
	if err != nil {
		t.Title, t.Status = fmt.Sprintf("Error fetching ticket: %v", err), StatusError
		return t
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Title, t.Status = titleUnavailable, StatusUnknown
		return t
	}

	var issue jiraIssue
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		t.Title, t.Status = fmt.Sprintf("Error fetching ticket: %v", err), StatusError
		return t
	}

	t.Title, t.Status = StatusUnknown, StatusUnknown
	if issue.Fields.Summary != nil {
		t.Title = norm.NFC.String(strings.TrimSpace(*issue.Fields.Summary))
	}
	if issue.Fields.Status != nil && issue.Fields.Status.Name != nil {
		t.Status = norm.NFC.String(strings.TrimSpace(*issue.Fields.Status.Name))
	}
	return t
}

func (j *Jira) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.apiURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(j.username, j.apiKey)
	req.Header.Set("Accept", "application/json")
	return j.client.Do(req)
}
