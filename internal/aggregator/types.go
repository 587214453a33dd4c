// Package aggregator combines feed items from multiple sources into a unified view.
//
// This package enables duofeed to:
// - Merge emails, posts and group summaries from one poll cycle
// - Drop duplicate items so every id appears once in the layout
// - Filter by date range and item type before partitioning
package aggregator

import (
	"time"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// FeedOptions configures feed retrieval.
type FeedOptions struct {
	Limit int
	Since time.Time
	Until time.Time
	Types []feed.ItemType
}
