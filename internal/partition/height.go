package partition

import (
	"fmt"
	"maps"

	"github.com/gauthierbraillon/duofeed/internal/feed"
)

// Estimated card heights in abstract layout units.
const (
	EmailHeight = 120
	PostHeight  = 200
	GroupHeight = 100
)

// HeightTable maps each item type to its estimated card height.
type HeightTable map[feed.ItemType]int

// DefaultHeights returns the standard height table.
func DefaultHeights() HeightTable {
	return HeightTable{
		feed.TypeEmail: EmailHeight,
		feed.TypePost:  PostHeight,
		feed.TypeGroup: GroupHeight,
	}
}

func (h HeightTable) clone() HeightTable {
	return maps.Clone(h)
}

func (h HeightTable) validate() error {
	for _, typ := range feed.Types {
		height, ok := h[typ]
		if !ok {
			return fmt.Errorf("%w: no height for %s", ErrInvalidHeights, typ)
		}
		if height <= 0 {
			return fmt.Errorf("%w: %s height must be positive, got %d", ErrInvalidHeights, typ, height)
		}
	}
	return nil
}

// Height returns the estimated height of item. It panics on a type outside
// the closed set, which indicates an integration bug upstream.
func (p *Partitioner) Height(item feed.Item) int {
	if !item.Type.Valid() {
		panic(fmt.Sprintf("partition: unknown item type %q for item %q", item.Type, item.ID))
	}
	return p.heights[item.Type]
}

// Height returns the estimated height of item using the default table.
func Height(item feed.Item) int {
	return defaultPartitioner.Height(item)
}
