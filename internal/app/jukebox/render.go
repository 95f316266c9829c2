package jukebox

import (
	"fmt"
	"io"

	"github.com/samber/lo"

	"github.com/evhagen/spindle/internal/domain/playlist"
)

// Renderer writes a window of the queue around the cursor. Pure observation;
// it never mutates the queue.
type Renderer struct {
	out    io.Writer
	window int
}

// NewRenderer creates a renderer showing up to window entries on each side of
// the cursor.
func NewRenderer(out io.Writer, window int) *Renderer {
	return &Renderer{out: out, window: window}
}

// Render prints the queue window, marking the current entry, followed by a
// flags line. A cursor resting past the end marks nothing.
func (r *Renderer) Render(q *playlist.Queue, autoplay bool) {
	n := q.Len()
	if n == 0 {
		fmt.Fprintln(r.out, "(empty playlist)")
		return
	}

	idx := q.Index()
	from := lo.Clamp(idx-r.window, 0, n-1)
	to := lo.Clamp(idx+r.window, 0, n-1)
	for i := from; i <= to; i++ {
		marker := "  "
		if i == idx {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s%3d  %s\n", marker, i+1, q.At(i).DisplayName())
	}

	position := "-"
	if idx < n {
		position = fmt.Sprintf("%d", idx+1)
	}
	fmt.Fprintf(r.out, "[track %s/%d  loop %s  autoplay %s]\n",
		position, n, onOff(q.Looping()), onOff(autoplay))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
