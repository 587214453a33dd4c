package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gauthierbraillon/duofeed/internal/config"
	"github.com/gauthierbraillon/duofeed/internal/feed"
	"github.com/gauthierbraillon/duofeed/internal/gmail"
	"github.com/gauthierbraillon/duofeed/internal/groupme"
	"github.com/gauthierbraillon/duofeed/internal/server"
	"github.com/gauthierbraillon/duofeed/pkg/oauth"
)

const gmailProvider = "gmail"

// sources gathers items from every configured source. The GroupMe client is
// kept for the lifetime of sources so unread counts span poll cycles.
type sources struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *oauth.TokenStorage
	groupme *groupme.Client
}

func newSources(cfg config.Config, logger *slog.Logger) *sources {
	s := &sources{
		cfg:     cfg,
		logger:  logger,
		storage: oauth.NewTokenStorage(cfg.ConfigDir),
	}
	if cfg.GroupMe.AccessToken != "" {
		s.groupme = groupme.NewClient(cfg.GroupMe.AccessToken, groupme.WithBaseURL(cfg.GroupMe.BaseURL))
	}
	return s
}

// gather returns the items of one poll cycle. A fixture path short-circuits the
// live sources. With no live source configured the bundled seed is used.
// Per-source failures are returned alongside the items that did load.
func (s *sources) gather(ctx context.Context, fixture string) ([]feed.Item, []error, error) {
	if fixture != "" {
		items, err := feed.LoadFile(fixture)
		return items, nil, err
	}

	_, tokenErr := s.storage.Load(gmailProvider)
	useGmail := !errors.Is(tokenErr, oauth.ErrTokenNotFound)
	if !useGmail && s.groupme == nil {
		s.logger.Info("no sources configured, showing the sample feed")
		items, err := feed.Seed()
		return items, nil, err
	}

	type fetch struct {
		name string
		run  func(context.Context) ([]feed.Item, error)
	}
	var fetches []fetch
	if useGmail {
		fetches = append(fetches, fetch{"Gmail", s.fetchEmailItems})
	}
	if s.groupme != nil {
		fetches = append(fetches, fetch{"GroupMe", s.fetchGroupItems})
	}

	results := make([][]feed.Item, len(fetches))
	failures := make([]error, len(fetches))
	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := f.run(ctx)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", f.name, err)
				return
			}
			results[i] = items
		}()
	}
	wg.Wait()

	var items []feed.Item
	var errs []error
	for i := range fetches {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		items = append(items, results[i]...)
	}
	return items, errs, nil
}

// forServer adapts gather to the backend. Partial results are served and
// logged; the request fails only when every source failed.
func (s *sources) forServer(fixture string) server.Source {
	return server.SourceFunc(func(ctx context.Context) ([]feed.Item, error) {
		items, errs, err := s.gather(ctx, fixture)
		if err != nil {
			return nil, err
		}
		for _, e := range errs {
			s.logger.Warn("feed source failed", "error", e)
		}
		if len(items) == 0 && len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return items, nil
	})
}

// fetchEmailItems fetches recent messages from Gmail.
func (s *sources) fetchEmailItems(ctx context.Context) ([]feed.Item, error) {
	cfg := oauth.GmailConfig(s.cfg.Gmail.ClientID, s.cfg.Gmail.ClientSecret, "")
	httpClient, err := s.storage.Client(ctx, cfg, gmailProvider)
	if err != nil {
		if errors.Is(err, oauth.ErrTokenNotFound) {
			return nil, fmt.Errorf("not authenticated (run 'duofeed auth gmail')")
		}
		return nil, err
	}

	var opts []gmail.ClientOption
	if s.cfg.Gmail.Endpoint != "" {
		opts = append(opts, gmail.WithEndpoint(s.cfg.Gmail.Endpoint))
	}
	client, err := gmail.NewClient(ctx, httpClient, opts...)
	if err != nil {
		return nil, err
	}

	emails, err := client.FetchEmails(ctx, gmail.Query{
		MaxResults: s.cfg.Gmail.MaxResults,
		After:      s.cfg.Gmail.StartDate,
		Before:     s.cfg.Gmail.EndDate,
	})
	if err != nil {
		return nil, err
	}

	items := make([]feed.Item, 0, len(emails))
	for _, e := range emails {
		items = append(items, e.FeedItem())
	}
	return items, nil
}

// fetchGroupItems fetches group summaries and their unread counts from GroupMe.
func (s *sources) fetchGroupItems(ctx context.Context) ([]feed.Item, error) {
	groups, err := s.groupme.FetchGroups(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]feed.Item, 0, len(groups))
	for _, g := range groups {
		unread, err := s.groupme.FetchUnread(ctx, g.ID, s.cfg.GroupMe.UnreadLimit)
		if err != nil {
			s.logger.Warn("failed to count unread messages", "group", g.Name, "error", err)
		}
		items = append(items, g.FeedItem(len(unread)))
	}
	return items, nil
}
