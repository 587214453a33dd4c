package partition

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// Epoch is the instant given to timestamps that cannot be parsed, so they sort as oldest.
var Epoch = time.Unix(0, 0).UTC()

var monthDayYear = regexp.MustCompile(`^\s*([A-Za-z]+)\.?\s+(\d{1,2}),\s*(\d{4})\s*$`)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May, "june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// DateNormalizer turns loosely formatted timestamps into instants.
type DateNormalizer struct {
	loc    *time.Location
	logger *slog.Logger
}

// NewDateNormalizer creates a normalizer that interprets zone-less timestamps in loc.
func NewDateNormalizer(loc *time.Location, logger *slog.Logger) *DateNormalizer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DateNormalizer{loc: loc, logger: logger}
}

// Parse returns the instant described by s. It tries "<Month> <Day>, <Year>"
// first, then a generic parse, and finally returns Epoch.
func (d *DateNormalizer) Parse(s string) time.Time {
	if t, ok := d.parseMonthDayYear(s); ok {
		return t
	}
	if t, err := dateparse.ParseIn(strings.TrimSpace(s), d.loc); err == nil {
		return t
	}

	d.logger.Warn("unparseable timestamp, sorting as oldest", "timestamp", s)
	return Epoch
}

func (d *DateNormalizer) parseMonthDayYear(s string) (time.Time, bool) {
	m := monthDayYear.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthNames[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, month, day, 0, 0, 0, 0, d.loc)
	// time.Date normalizes overflow, so February 30 comes back as March 1.
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// Instant returns the normalized instant of item. A group's raw last-message
// timestamp wins over its display timestamp.
func (p *Partitioner) Instant(item feed.Item) time.Time {
	if item.Type == feed.TypeGroup && item.Group != nil && item.Group.LastMessageTimestamp != nil {
		return time.Unix(*item.Group.LastMessageTimestamp, 0).In(p.loc)
	}
	return p.dates.Parse(item.Timestamp)
}

// ParseTimestamp normalizes s with the default Partitioner.
func ParseTimestamp(s string) time.Time {
	return defaultPartitioner.dates.Parse(s)
}
