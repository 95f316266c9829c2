package scan

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/domain/track"
)

// M3USettings configures an m3u playlist file source.
type M3USettings struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// M3USource reads a playlist file, one entry per line. Comment and blank
// lines are skipped, relative entries resolve against the playlist's
// directory, and non-local entries are skipped.
type M3USource struct {
	inspector Inspector
	settings  *M3USettings
}

// NewM3USource creates an m3u source from raw settings.
func NewM3USource(inspector Inspector, settings map[string]any) (*M3USource, error) {
	var cfg M3USettings
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &M3USource{inspector: inspector, settings: &cfg}, nil
}

// Tracks parses the playlist and probes each local entry. Entries that fail
// inspection are skipped so one stale path does not sink the playlist.
func (s *M3USource) Tracks(ctx context.Context) ([]track.Track, error) {
	f, err := os.Open(s.settings.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open playlist %s", s.settings.Path)
	}
	defer func() { _ = f.Close() }()

	base := filepath.Dir(s.settings.Path)
	var tracks []track.Track
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "://") {
			zlog.Debug().Msgf("scan: skipping non-local entry %s", line)
			continue
		}
		entry := line
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(base, entry)
		}
		t, err := s.inspector.Inspect(entry)
		if err != nil {
			zlog.Warn().Msgf("scan: skipping playlist entry %s: %v", line, err)
			continue
		}
		tracks = append(tracks, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read playlist %s", s.settings.Path)
	}
	zlog.Info().Msgf("scan: playlist %s yielded %d tracks", s.settings.Path, len(tracks))
	return tracks, nil
}

// Name returns the source name.
func (s *M3USource) Name() string {
	return "m3u"
}
