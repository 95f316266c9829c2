package scan

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/domain/track"
)

// DirectorySettings configures a directory source.
type DirectorySettings struct {
	Root string `yaml:"root" mapstructure:"root" validate:"required"`
}

// DirectorySource walks a directory tree in lexical order and keeps every
// file carrying a decodable audio stream.
type DirectorySource struct {
	inspector Inspector
	settings  *DirectorySettings
}

// NewDirectorySource creates a directory source from raw settings.
func NewDirectorySource(inspector Inspector, settings map[string]any) (*DirectorySource, error) {
	var cfg DirectorySettings
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &DirectorySource{inspector: inspector, settings: &cfg}, nil
}

// Tracks walks the configured root. Files without an audio stream and
// unreadable entries are skipped; an unreadable root fails the source.
func (s *DirectorySource) Tracks(ctx context.Context) ([]track.Track, error) {
	var tracks []track.Track
	walkErr := filepath.WalkDir(s.settings.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			zlog.Warn().Msgf("scan: skipping %s: %v", path, err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		t, err := s.inspector.Inspect(path)
		if err != nil {
			zlog.Debug().Msgf("scan: not audio: %s: %v", path, err)
			return nil
		}
		tracks = append(tracks, t)
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrapf(walkErr, "walk %s", s.settings.Root)
	}
	zlog.Info().Msgf("scan: directory %s yielded %d tracks", s.settings.Root, len(tracks))
	return tracks, nil
}

// Name returns the source name.
func (s *DirectorySource) Name() string {
	return "directory"
}
