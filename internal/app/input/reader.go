package input

import (
	"bufio"
	"context"
	"io"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/domain/command"
)

// Reader scans a line-oriented source and forwards recognized commands.
type Reader struct {
	keymap Keymap
	src    io.Reader
}

// NewReader creates a reader over src using the given token table.
func NewReader(src io.Reader, keymap Keymap) *Reader {
	return &Reader{keymap: keymap, src: src}
}

// Run reads src line by line until end of input, a read error, or ctx
// cancellation. Each line is trimmed and resolved through the keymap;
// unrecognized tokens are dropped. The out channel is closed on exit so the
// receiver observes a graceful end of input.
func (r *Reader) Run(ctx context.Context, out chan<- command.Command) {
	defer close(out)

	scanner := bufio.NewScanner(r.src)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}
		cmd, ok := r.keymap[token]
		if !ok {
			zlog.Debug().Msgf("input: unrecognized token %q", token)
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		zlog.Warn().Err(err).Msg("input: read failed")
	}
	zlog.Debug().Msg("input: end of input")
}
