package partition

import (
	"errors"
	"fmt"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// ErrUnknownStrategy is returned when looking up a strategy name that does not exist.
var ErrUnknownStrategy = errors.New("unknown partition strategy")

// Strategy names.
const (
	StrategyGreedyHeight    = "greedy-height"
	StrategyHeightGuarded   = "height-guarded"
	StrategyRecencyPriority = "recency-priority"

	StrategyGreedyBalanced = "greedy-balanced"
	StrategyTypeBalanced   = "type-balanced"
	StrategyAlternating    = "alternating"
)

type strategy struct {
	name string
	run  func(*Partitioner, []feed.Item) Result
}

// Strategy sets per policy, in selection order.
var (
	asymmetricStrategies = []strategy{
		{StrategyGreedyHeight, (*Partitioner).GreedyHeight},
		{StrategyHeightGuarded, (*Partitioner).HeightGuarded},
		{StrategyRecencyPriority, (*Partitioner).RecencyPriority},
	}
	symmetricStrategies = []strategy{
		{StrategyGreedyBalanced, (*Partitioner).GreedyBalanced},
		{StrategyTypeBalanced, (*Partitioner).TypeBalanced},
		{StrategyAlternating, (*Partitioner).Alternating},
	}
)

func (p *Partitioner) strategies() []strategy {
	if p.policy == PolicySymmetric {
		return symmetricStrategies
	}
	return asymmetricStrategies
}

// StrategyNames lists the strategies SelectBest runs under the configured policy.
func (p *Partitioner) StrategyNames() []string {
	set := p.strategies()
	names := make([]string, len(set))
	for i, s := range set {
		names[i] = s.name
	}
	return names
}

// Strategy returns a single named strategy, from either policy's set.
func (p *Partitioner) Strategy(name string) (func([]feed.Item) Result, error) {
	for _, set := range [][]strategy{asymmetricStrategies, symmetricStrategies} {
		for _, s := range set {
			if s.name == name {
				run := s.run
				return func(items []feed.Item) Result { return run(p, items) }, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (p *Partitioner) result(name string, c1, c2 *column, score Scorer) Result {
	return Result{
		Column1:      c1.list(),
		Column2:      c2.list(),
		BalanceScore: score(c1.stats, c2.stats),
		Strategy:     name,
	}
}

// greedy places each item where the resulting split scores lowest; ties go left.
func (p *Partitioner) greedy(sorted []feed.Item, score Scorer) (*column, *column) {
	c1, c2 := &column{}, &column{}
	for _, item := range sorted {
		h := p.Height(item)
		left := score(c1.stats.plus(item, h), c2.stats)
		right := score(c1.stats, c2.stats.plus(item, h))
		if left <= right {
			c1.add(item, h)
		} else {
			c2.add(item, h)
		}
	}
	return c1, c2
}

// heightGuard walks items in order and places each on the right only when the
// right column stays no taller than the left one, so height(c1) >= height(c2).
func (p *Partitioner) heightGuard(sorted []feed.Item) (*column, *column) {
	c1, c2 := &column{}, &column{}
	for _, item := range sorted {
		h := p.Height(item)
		if c2.stats.Height+h <= c1.stats.Height {
			c2.add(item, h)
		} else {
			c1.add(item, h)
		}
	}
	return c1, c2
}

// alternate sends even positions left and odd positions right.
func alternate(items []feed.Item, c1, c2 *column, height func(feed.Item) int) {
	for i, item := range items {
		if i%2 == 0 {
			c1.add(item, height(item))
		} else {
			c2.add(item, height(item))
		}
	}
}

// GreedyHeight is the greedy incremental strategy scored asymmetrically.
// Items with the same instant are placed tallest first.
func (p *Partitioner) GreedyHeight(items []feed.Item) Result {
	c1, c2 := p.greedy(p.sortTallestFirstOnTies(items), AsymmetricScore)
	return p.result(StrategyGreedyHeight, c1, c2, AsymmetricScore)
}

// HeightGuarded walks the recency order keeping the left column at least as tall as the right.
func (p *Partitioner) HeightGuarded(items []feed.Item) Result {
	c1, c2 := p.heightGuard(p.SortByRecency(items))
	return p.result(StrategyHeightGuarded, c1, c2, AsymmetricScore)
}

// RecencyPriority leads the left column with the most recent item and then
// applies the same height guard.
func (p *Partitioner) RecencyPriority(items []feed.Item) Result {
	c1, c2 := p.heightGuard(p.SortByRecency(items))
	return p.result(StrategyRecencyPriority, c1, c2, AsymmetricScore)
}

// GreedyBalanced is the greedy incremental strategy scored symmetrically.
func (p *Partitioner) GreedyBalanced(items []feed.Item) Result {
	c1, c2 := p.greedy(p.SortByRecency(items), SymmetricScore)
	return p.result(StrategyGreedyBalanced, c1, c2, SymmetricScore)
}

// TypeBalanced alternates columns within each type's recency-sorted
// sub-sequence: emails first, then posts, then groups.
func (p *Partitioner) TypeBalanced(items []feed.Item) Result {
	byType := make(map[feed.ItemType][]feed.Item, len(feed.Types))
	for _, item := range p.SortByRecency(items) {
		_ = p.Height(item) // panics on a type outside feed.Types instead of dropping the item
		byType[item.Type] = append(byType[item.Type], item)
	}

	c1, c2 := &column{}, &column{}
	for _, typ := range feed.Types {
		alternate(byType[typ], c1, c2, p.Height)
	}
	return p.result(StrategyTypeBalanced, c1, c2, SymmetricScore)
}

// Alternating alternates columns strictly by recency-sorted position.
func (p *Partitioner) Alternating(items []feed.Item) Result {
	c1, c2 := &column{}, &column{}
	alternate(p.SortByRecency(items), c1, c2, p.Height)
	return p.result(StrategyAlternating, c1, c2, SymmetricScore)
}
