// Package feed defines the unified feed item model shared by every source and renderer.
//
// This package enables duofeed to:
// - Represent emails, posts and group-chat summaries as one tagged item type
// - Decode and encode the flat JSON shape used by the seed fixture and the local backend
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned when decoding an item whose discriminant is not email, post or group.
var ErrUnknownType = errors.New("unknown feed item type")

// ItemType is the discriminant of a feed item.
type ItemType string

const (
	TypeEmail ItemType = "email"
	TypePost  ItemType = "post"
	TypeGroup ItemType = "group"
)

// Types lists every valid discriminant in display order.
var Types = []ItemType{TypeEmail, TypePost, TypeGroup}

// Valid reports whether t is one of the closed set of item types.
func (t ItemType) Valid() bool {
	switch t {
	case TypeEmail, TypePost, TypeGroup:
		return true
	}
	return false
}

// ParseType converts a string to an ItemType.
func ParseType(s string) (ItemType, error) {
	t := ItemType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Item is a single card of the unified feed. Exactly one of Email, Post or Group
// is set, matching Type.
type Item struct {
	ID        string
	Type      ItemType
	Timestamp string

	Email *Email
	Post  *Post
	Group *Group
}

// Email is the payload of an email item.
type Email struct {
	Sender      string `json:"sender"`
	SenderEmail string `json:"senderEmail,omitempty"`
	Subject     string `json:"subject"`
	Preview     string `json:"preview"`
	Body        string `json:"body,omitempty"`
	IsRead      *bool  `json:"isRead,omitempty"`
}

// Post is the payload of a social-media post item.
type Post struct {
	ImageURL    string `json:"imageUrl"`
	PosterName  string `json:"posterName"`
	Description string `json:"description"`
}

// Group is the payload of a group-chat summary item.
type Group struct {
	SenderName           string `json:"senderName"`
	Preview              string `json:"preview"`
	GroupName            string `json:"groupName"`
	GroupID              string `json:"groupId"`
	UnreadCount          *int   `json:"unreadCount,omitempty"`
	GroupIconURL         string `json:"groupIconUrl,omitempty"`
	LastMessageTimestamp *int64 `json:"lastMessageTimestamp,omitempty"`
}

// NewEmail builds an email item.
func NewEmail(id, timestamp string, e Email) Item {
	return Item{ID: id, Type: TypeEmail, Timestamp: timestamp, Email: &e}
}

// NewPost builds a post item.
func NewPost(id, timestamp string, p Post) Item {
	return Item{ID: id, Type: TypePost, Timestamp: timestamp, Post: &p}
}

// NewGroup builds a group item.
func NewGroup(id, timestamp string, g Group) Item {
	return Item{ID: id, Type: TypeGroup, Timestamp: timestamp, Group: &g}
}

// Data is the top-level shape of the seed fixture and the items endpoint.
type Data struct {
	FeedItems []Item `json:"feedItems"`
}

type itemHeader struct {
	ID        string   `json:"id"`
	Type      ItemType `json:"type"`
	Timestamp string   `json:"timestamp"`
}

// MarshalJSON encodes the item as one flat object.
func (it Item) MarshalJSON() ([]byte, error) {
	h := itemHeader{ID: it.ID, Type: it.Type, Timestamp: it.Timestamp}
	switch it.Type {
	case TypeEmail:
		return json.Marshal(struct {
			itemHeader
			*Email
		}{h, orEmpty(it.Email)})
	case TypePost:
		return json.Marshal(struct {
			itemHeader
			*Post
		}{h, orEmpty(it.Post)})
	case TypeGroup:
		return json.Marshal(struct {
			itemHeader
			*Group
		}{h, orEmpty(it.Group)})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, it.Type)
	}
}

// UnmarshalJSON decodes a flat object, dispatching on its "type" field.
func (it *Item) UnmarshalJSON(data []byte) error {
	var h itemHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	if !h.Type.Valid() {
		return fmt.Errorf("item %q: %w: %q", h.ID, ErrUnknownType, h.Type)
	}

	decoded := Item{ID: h.ID, Type: h.Type, Timestamp: h.Timestamp}
	var err error
	switch h.Type {
	case TypeEmail:
		decoded.Email = &Email{}
		err = json.Unmarshal(data, decoded.Email)
	case TypePost:
		decoded.Post = &Post{}
		err = json.Unmarshal(data, decoded.Post)
	case TypeGroup:
		decoded.Group = &Group{}
		err = json.Unmarshal(data, decoded.Group)
	}
	if err != nil {
		return fmt.Errorf("item %q: %w", h.ID, err)
	}
	*it = decoded
	return nil
}

func orEmpty[T any](p *T) *T {
	if p == nil {
		return new(T)
	}
	return p
}
