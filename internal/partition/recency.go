package partition

import (
	"cmp"
	"slices"
	"time"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// recencyKey orders items newest first. Items dated after the current year are
// demoted behind every other item, nearest future year first.
type recencyKey struct {
	future bool
	offset int
	at     time.Time
}

func compareRecency(a, b recencyKey) int {
	if a.future != b.future {
		if a.future {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.offset, b.offset); c != 0 {
		return c
	}
	return b.at.Compare(a.at)
}

type ranked struct {
	item feed.Item
	key  recencyKey
}

func (p *Partitioner) rank(items []feed.Item) []ranked {
	currentYear := p.now().In(p.loc).Year()

	out := make([]ranked, len(items))
	for i, item := range items {
		at := p.Instant(item)
		key := recencyKey{at: at}
		if year := at.In(p.loc).Year(); year > currentYear {
			key.future = true
			key.offset = year - currentYear
		}
		out[i] = ranked{item: item, key: key}
	}
	return out
}

func unrank(rs []ranked) []feed.Item {
	items := make([]feed.Item, len(rs))
	for i, r := range rs {
		items[i] = r.item
	}
	return items
}

// SortByRecency returns a new slice of items ordered newest first. Items with
// equal instants keep their input order.
func (p *Partitioner) SortByRecency(items []feed.Item) []feed.Item {
	rs := p.rank(items)
	slices.SortStableFunc(rs, func(a, b ranked) int {
		return compareRecency(a.key, b.key)
	})
	return unrank(rs)
}

// sortTallestFirstOnTies orders by recency and breaks equal instants by
// putting taller cards first, so a greedy pass places the large cards early.
func (p *Partitioner) sortTallestFirstOnTies(items []feed.Item) []feed.Item {
	rs := p.rank(items)
	slices.SortStableFunc(rs, func(a, b ranked) int {
		if c := compareRecency(a.key, b.key); c != 0 {
			return c
		}
		return cmp.Compare(p.Height(b.item), p.Height(a.item))
	})
	return unrank(rs)
}
