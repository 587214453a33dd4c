package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	user          = "me"
	unreadLabel   = "UNREAD"
	dateLayout    = "2006-01-02"
	noSubject     = "(No Subject)"
	unknownSender = "(Unknown Sender)"
)

// ClientOption configures the Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	endpoint string
}

// WithEndpoint sets a custom API endpoint (useful for testing).
func WithEndpoint(url string) ClientOption {
	return func(o *clientOptions) {
		o.endpoint = strings.TrimRight(url, "/") + "/"
	}
}

// Client reads messages from the authenticated user's mailbox.
type Client struct {
	srv *gmailapi.Service
}

// NewClient creates a Gmail client. httpClient must already carry OAuth credentials.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...ClientOption) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}

	srv, err := gmailapi.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Client{srv: srv}, nil
}

// BuildQuery converts a date range in YYYY-MM-DD form to a Gmail search query.
func BuildQuery(q Query) (string, error) {
	var parts []string
	if q.After != "" {
		t, err := time.ParseInLocation(dateLayout, q.After, time.Local)
		if err != nil {
			return "", fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", q.After)
		}
		parts = append(parts, fmt.Sprintf("after:%d", t.Unix()))
	}
	if q.Before != "" {
		t, err := time.ParseInLocation(dateLayout, q.Before, time.Local)
		if err != nil {
			return "", fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", q.Before)
		}
		parts = append(parts, fmt.Sprintf("before:%d", t.Unix()))
	}
	return strings.Join(parts, " "), nil
}

// FetchEmails lists messages matching q and fetches each one.
func (c *Client) FetchEmails(ctx context.Context, q Query) ([]Email, error) {
	search, err := BuildQuery(q)
	if err != nil {
		return nil, err
	}

	call := c.srv.Users.Messages.List(user).Context(ctx)
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}
	if search != "" {
		call = call.Q(search)
	}

	list, err := call.Do()
	if err != nil {
		return nil, apiError(err)
	}

	emails := make([]Email, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.srv.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, apiError(err)
		}
		emails = append(emails, parseMessage(msg))
	}
	return emails, nil
}

func parseMessage(msg *gmailapi.Message) Email {
	email := Email{
		ID:      msg.Id,
		Subject: noSubject,
		From:    unknownSender,
		Snippet: plainText(msg.Snippet),
		Read:    !slices.Contains(msg.LabelIds, unreadLabel),
	}
	if msg.InternalDate > 0 {
		email.Date = time.UnixMilli(msg.InternalDate).UTC()
	}

	if msg.Payload == nil {
		return email
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			if h.Value != "" {
				email.Subject = h.Value
			}
		case "From":
			email.From = h.Value
		case "Date":
			if email.Date.IsZero() {
				if t, err := mail.ParseDate(h.Value); err == nil {
					email.Date = t.UTC()
				}
			}
		}
	}

	if addr, err := mail.ParseAddress(email.From); err == nil {
		email.SenderName = addr.Name
		email.SenderAddress = addr.Address
	} else {
		email.SenderName = email.From
	}
	email.Body = messageBody(msg.Payload)

	return email
}

// messageBody prefers the text/plain part and falls back to text/html stripped of markup.
func messageBody(payload *gmailapi.MessagePart) string {
	if text, ok := findPart(payload, "text/plain"); ok {
		return strings.TrimSpace(text)
	}
	if html, ok := findPart(payload, "text/html"); ok {
		return plainText(html)
	}
	return ""
}

func findPart(part *gmailapi.MessagePart, mimeType string) (string, bool) {
	if part == nil {
		return "", false
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		if decoded, err := decodeBody(part.Body.Data); err == nil {
			return decoded, true
		}
	}
	for _, child := range part.Parts {
		if text, ok := findPart(child, mimeType); ok {
			return text, true
		}
	}
	return "", false
}

func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode message body: %w", err)
	}
	return string(decoded), nil
}

// plainText extracts the visible text of an HTML fragment and collapses whitespace.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("script, style, head").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func apiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("gmail request failed: %w", err)
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("Gmail authentication failed - please run 'duofeed auth gmail' to re-authenticate")
	case http.StatusForbidden:
		return fmt.Errorf("Gmail access denied - check your OAuth permissions")
	case http.StatusTooManyRequests:
		return fmt.Errorf("Gmail rate limit exceeded - please try again later")
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("Gmail server error - please try again later")
	default:
		return fmt.Errorf("Gmail API error (status %d) - please try again", gerr.Code)
	}
}
