package scan

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/domain/track"
	"github.com/evhagen/spindle/internal/infra/audio"
)

// MediaInspector probes files with the audio decoders and reads tag
// metadata. Paths are canonicalized so the chain can de-duplicate entries
// reached through different spellings.
type MediaInspector struct{}

// Inspect returns the track for path, or an error when the file carries no
// decodable audio stream.
func (MediaInspector) Inspect(path string) (track.Track, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return track.Track{}, err
	}
	info, err := audio.Probe(canonical)
	if err != nil {
		return track.Track{}, err
	}
	t := track.Track{Path: canonical, Duration: info.Duration}
	readTags(&t)
	return t, nil
}

// readTags fills display metadata. Failures only cost the nicer name.
func readTags(t *track.Track) {
	f, err := os.Open(t.Path)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		zlog.Debug().Msgf("scan: no tags in %s: %v", t.Path, err)
		return
	}
	t.Title = meta.Title()
	t.Artist = meta.Artist()
	t.Album = meta.Album()
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	return resolved, nil
}
