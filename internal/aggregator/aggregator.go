package aggregator

import (
	"slices"

	"github.com/gauthierbraillon/duofeed/internal/feed"
	"github.com/gauthierbraillon/duofeed/internal/partition"
)

// Aggregator collects and merges feed items from multiple sources.
type Aggregator struct {
	partitioner *partition.Partitioner
	items       []feed.Item
	seen        map[string]bool
}

// New creates a new Aggregator that orders and lays out items with p.
func New(p *partition.Partitioner) *Aggregator {
	return &Aggregator{
		partitioner: p,
		items:       make([]feed.Item, 0),
		seen:        make(map[string]bool),
	}
}

// AddItems adds feed items to the aggregator. Items whose id was already added are ignored.
func (a *Aggregator) AddItems(items []feed.Item) {
	for _, item := range items {
		if a.seen[item.ID] {
			continue
		}
		a.seen[item.ID] = true
		a.items = append(a.items, item)
	}
}

// Len returns the number of distinct items collected.
func (a *Aggregator) Len() int {
	return len(a.items)
}

// GetFeed returns aggregated feed items, newest first, filtered by opts.
func (a *Aggregator) GetFeed(opts FeedOptions) []feed.Item {
	sorted := a.partitioner.SortByRecency(a.items)

	result := make([]feed.Item, 0, len(sorted))
	for _, item := range sorted {
		if !a.matches(item, opts) {
			continue
		}
		result = append(result, item)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result
}

// Layout returns the filtered feed split into two balanced columns.
func (a *Aggregator) Layout(opts FeedOptions) partition.Result {
	return a.partitioner.SelectBest(a.GetFeed(opts))
}

func (a *Aggregator) matches(item feed.Item, opts FeedOptions) bool {
	if len(opts.Types) > 0 && !slices.Contains(opts.Types, item.Type) {
		return false
	}
	if opts.Since.IsZero() && opts.Until.IsZero() {
		return true
	}

	at := a.partitioner.Instant(item)
	if !opts.Since.IsZero() && at.Before(opts.Since) {
		return false
	}
	if !opts.Until.IsZero() && at.After(opts.Until) {
		return false
	}
	return true
}
