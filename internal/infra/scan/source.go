// Package scan builds the playlist from configured track sources.
package scan

import (
	"context"

	"github.com/evhagen/spindle/internal/domain/track"
)

// Source is the interface for playlist track sources.
// Different implementations collect tracks through various strategies
// (directory walks, playlist files, etc.).
type Source interface {
	// Tracks collects the source's playable tracks in stable order.
	Tracks(ctx context.Context) ([]track.Track, error)

	// Name returns the source type name (used in config).
	Name() string
}

// Inspector decides whether a file is playable and gathers its display
// metadata.
type Inspector interface {
	Inspect(path string) (track.Track, error)
}
