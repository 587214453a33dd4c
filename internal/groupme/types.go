// Package groupme provides a client for GroupMe group-chat summaries.
//
// This package enables duofeed to:
// - List the user's groups with their latest message preview
// - Count messages received since the previous poll
// - Convert groups into group feed items
package groupme

import (
	"time"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// Group is a GroupMe group with its most recent message.
type Group struct {
	ID            string
	Name          string
	ImageURL      string
	MessageCount  int
	LastMessageID string
	LastMessageAt time.Time
	PreviewSender string
	PreviewText   string
}

// Message is a single group message.
type Message struct {
	ID        string
	Sender    string
	Text      string
	CreatedAt time.Time
}

// FeedItem converts the group into a group feed item carrying unread new messages.
func (g Group) FeedItem(unread int) feed.Item {
	item := feed.Group{
		SenderName:   g.PreviewSender,
		Preview:      g.PreviewText,
		GroupName:    g.Name,
		GroupID:      g.ID,
		UnreadCount:  &unread,
		GroupIconURL: g.ImageURL,
	}

	timestamp := ""
	if !g.LastMessageAt.IsZero() {
		ts := g.LastMessageAt.Unix()
		item.LastMessageTimestamp = &ts
		timestamp = g.LastMessageAt.UTC().Format("January 2, 2006")
	}

	return feed.NewGroup("groupme-"+g.ID, timestamp, item)
}
