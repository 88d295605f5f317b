// Package model contains abstract data models.
package model

import "time"

type Commit struct {
	ID             string `json:"commit"`
	Author         string
	AuthorEmail    string
	AuthorDate     time.Time
	Committer      string
	CommitterEmail string
	CommitterDate  time.Time
	Subject        string
	Body           string
}

// ShortID abbreviates a commit id for display.
func ShortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

// Message returns the full commit message, subject and body.
func (c *Commit) Message() string {
	if c.Body == "" {
		return c.Subject
	}
	return c.Subject + "\n\n" + c.Body
}

// Tag is a release tag and the commit it points at.
type Tag struct {
	Name   string    `json:"name"`
	Commit string    `json:"commit"`
	Date   time.Time `json:"date"`
}

// Ticket is an issue tracker reference found in commit messages. Title,
// Status and URL are only set when the ticket was enriched by a connector.
type Ticket struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
	URL    string `json:"url,omitempty"`
}
