package partition

import "github.com/gauthierbraillon/duofeed/internal/feed"

// asymmetricPenalty is the base penalty for a right column taller than the left one.
const asymmetricPenalty = 1000

// ColumnStats is the aggregate a balance score is computed from.
type ColumnStats struct {
	Height int
	Emails int
	Posts  int
	Groups int
}

func (s ColumnStats) plus(item feed.Item, height int) ColumnStats {
	s.Height += height
	switch item.Type {
	case feed.TypeEmail:
		s.Emails++
	case feed.TypePost:
		s.Posts++
	case feed.TypeGroup:
		s.Groups++
	}
	return s
}

// Measure computes the stats of a column holding items.
func (p *Partitioner) Measure(items []feed.Item) ColumnStats {
	var s ColumnStats
	for _, item := range items {
		s = s.plus(item, p.Height(item))
	}
	return s
}

// Scorer ranks a candidate split; lower is better.
type Scorer func(c1, c2 ColumnStats) int

// SymmetricScore penalizes height imbalance twice as much as email and post count imbalance.
func SymmetricScore(c1, c2 ColumnStats) int {
	heightDiff := abs(c1.Height - c2.Height)
	typeDiff := abs(c1.Emails-c2.Emails) + abs(c1.Posts-c2.Posts)
	return heightDiff*2 + typeDiff
}

// AsymmetricScore prefers the left column to be at least as tall as the right
// one. A taller right column costs 1000 plus its lead.
func AsymmetricScore(c1, c2 ColumnStats) int {
	diff := c1.Height - c2.Height
	if diff >= 0 {
		return diff
	}
	return asymmetricPenalty - diff
}

// Scorer returns the balance score of the configured policy.
func (p *Partitioner) Scorer() Scorer {
	if p.policy == PolicySymmetric {
		return SymmetricScore
	}
	return AsymmetricScore
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// column is the ephemeral state of one output column during a single call.
type column struct {
	items []feed.Item
	stats ColumnStats
}

func (c *column) add(item feed.Item, height int) {
	c.items = append(c.items, item)
	c.stats = c.stats.plus(item, height)
}

func (c *column) list() []feed.Item {
	if c.items == nil {
		return []feed.Item{}
	}
	return c.items
}
