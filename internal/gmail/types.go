// Package gmail provides a read-only client for the user's Gmail inbox.
//
// This package enables duofeed to:
// - List recent messages within an optional date range
// - Extract sender, subject, read state and a plain-text body
// - Convert messages into email feed items
package gmail

import (
	"time"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// Query selects which messages to fetch. After and Before are YYYY-MM-DD dates.
type Query struct {
	MaxResults int64
	After      string
	Before     string
}

// Email holds the essential information extracted from a Gmail message.
type Email struct {
	ID            string
	From          string
	SenderName    string
	SenderAddress string
	Subject       string
	Snippet       string
	Body          string
	Date          time.Time
	Read          bool
}

// FeedItem converts the message into an email feed item.
func (e Email) FeedItem() feed.Item {
	sender := e.SenderName
	if sender == "" {
		sender = e.SenderAddress
	}

	timestamp := ""
	if !e.Date.IsZero() {
		timestamp = e.Date.Format(time.RFC3339)
	}

	read := e.Read
	return feed.NewEmail("gmail-"+e.ID, timestamp, feed.Email{
		Sender:      sender,
		SenderEmail: e.SenderAddress,
		Subject:     e.Subject,
		Preview:     e.Snippet,
		Body:        e.Body,
		IsRead:      &read,
	})
}
