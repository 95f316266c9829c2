package scan

import (
	"context"

	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/evhagen/spindle/internal/domain/track"
)

// Chain queries a list of sources in order and merges their results.
// A failing source is logged and skipped so the remaining sources still
// contribute. Duplicate paths are dropped, keeping the first occurrence.
type Chain struct {
	sources []Source
}

// NewChain creates a chain over the given sources.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Tracks collects tracks from every source in the chain.
func (c *Chain) Tracks(ctx context.Context) ([]track.Track, error) {
	var merged []track.Track
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		zlog.Debug().Msgf("scan: querying source %s", src.Name())
		tracks, err := src.Tracks(ctx)
		if err != nil {
			zlog.Warn().Msgf("scan: source %s failed: %v", src.Name(), err)
			continue
		}
		zlog.Info().Msgf("scan: source %s returned %d tracks", src.Name(), len(tracks))
		merged = append(merged, tracks...)
	}

	unique := lo.UniqBy(merged, func(t track.Track) string {
		return t.Path
	})
	if dropped := len(merged) - len(unique); dropped > 0 {
		zlog.Debug().Msgf("scan: dropped %d duplicate tracks", dropped)
	}
	return unique, nil
}

// Name returns the source name.
func (c *Chain) Name() string {
	return "chain"
}
