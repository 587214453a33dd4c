// Package partition splits a feed into two display columns.
//
// This package enables duofeed to:
// - Estimate the rendered height of each card
// - Normalize loosely formatted timestamps and order items newest first
// - Run several column-balancing heuristics and keep the best-scoring split
//
// A Partitioner is immutable once built. Every call allocates its own column
// state, so one Partitioner can serve concurrent requests.
package partition

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// ErrInvalidHeights is returned when a height table is missing a type or holds a non-positive height.
var ErrInvalidHeights = errors.New("invalid height table")

// ErrUnknownPolicy is returned for a scoring policy other than asymmetric or symmetric.
var ErrUnknownPolicy = errors.New("unknown scoring policy")

// Policy selects which family of strategies and which balance score is used.
type Policy string

const (
	// PolicyAsymmetric keeps the left column at least as tall as the right one.
	PolicyAsymmetric Policy = "asymmetric"
	// PolicySymmetric balances height and per-type counts evenly.
	PolicySymmetric Policy = "symmetric"
)

// Result is a two-column split of a feed.
type Result struct {
	Column1      []feed.Item `json:"column1"`
	Column2      []feed.Item `json:"column2"`
	BalanceScore int         `json:"balanceScore"`
	Strategy     string      `json:"strategy,omitempty"`
}

// Partitioner holds the height table, clock and scoring policy used for layout.
type Partitioner struct {
	heights HeightTable
	dates   *DateNormalizer
	now     func() time.Time
	policy  Policy
	logger  *slog.Logger
	loc     *time.Location
}

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithHeights replaces the default height table.
func WithHeights(h HeightTable) Option {
	return func(p *Partitioner) {
		p.heights = h.clone()
	}
}

// WithClock sets the clock used to detect future-dated items.
func WithClock(now func() time.Time) Option {
	return func(p *Partitioner) {
		p.now = now
	}
}

// WithPolicy selects the scoring policy and its strategy set.
func WithPolicy(policy Policy) Option {
	return func(p *Partitioner) {
		p.policy = policy
	}
}

// WithLogger sets the logger that receives timestamp fallback warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Partitioner) {
		p.logger = logger
	}
}

// WithLocation sets the zone used for day-precision timestamps and year boundaries.
func WithLocation(loc *time.Location) Option {
	return func(p *Partitioner) {
		p.loc = loc
	}
}

// New creates a Partitioner. Without options it uses the default height table,
// the asymmetric policy, the local zone and the wall clock.
func New(opts ...Option) (*Partitioner, error) {
	p := &Partitioner{
		heights: DefaultHeights(),
		now:     time.Now,
		policy:  PolicyAsymmetric,
		logger:  slog.New(slog.DiscardHandler),
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.heights.validate(); err != nil {
		return nil, err
	}
	if p.policy != PolicyAsymmetric && p.policy != PolicySymmetric {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, p.policy)
	}
	p.dates = NewDateNormalizer(p.loc, p.logger)

	return p, nil
}

// Policy returns the configured scoring policy.
func (p *Partitioner) Policy() Policy {
	return p.policy
}

var defaultPartitioner = mustNew()

func mustNew() *Partitioner {
	p, err := New()
	if err != nil {
		panic(err)
	}
	return p
}

// SelectBest partitions items with the default Partitioner.
func SelectBest(items []feed.Item) Result {
	return defaultPartitioner.SelectBest(items)
}

// SortByRecency orders items newest first with the default Partitioner.
func SortByRecency(items []feed.Item) []feed.Item {
	return defaultPartitioner.SortByRecency(items)
}
