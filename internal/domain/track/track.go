// Package track provides the Track domain entity.
package track

import (
	"path/filepath"
	"strings"
	"time"
)

// Track represents one audio-bearing file on disk.
// Metadata is collected once at scan time; the file itself is opened lazily.
type Track struct {
	Path     string        // Canonical absolute path
	Title    string        // Title from tags (may be empty)
	Artist   string        // Artist from tags (may be empty)
	Album    string        // Album from tags (may be empty)
	Duration time.Duration // Decoded length (zero if unknown)
}

// DisplayName returns a human-readable label for the track.
// Prefers tag metadata and falls back to the file name without extension.
func (t *Track) DisplayName() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		name := filepath.Base(t.Path)
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
}
