package feed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

//go:embed seed.json
var seedData []byte

// Seed returns the bundled fallback dataset.
func Seed() ([]Item, error) {
	return Decode(bytes.NewReader(seedData))
}

// LoadFile reads a fixture file in the {"feedItems": [...]} shape.
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path) // #nosec G304 -- path is chosen by the local user
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode parses a fixture document. Items without an id get a random one so
// every item stays addressable by the renderer.
func Decode(r io.Reader) ([]Item, error) {
	var data Data
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	items := make([]Item, 0, len(data.FeedItems))
	for _, item := range data.FeedItems {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		items = append(items, item)
	}
	return items, nil
}
