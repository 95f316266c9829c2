// Package command provides the control commands understood by the jukebox.
package command

// Command is one abstract control instruction produced by an input source
// and consumed by the jukebox control loop.
type Command int

const (
	Quit Command = iota
	Next
	Previous
	Restart
	TogglePlay
	ToggleLoop
	ToggleAutoplay
	ToggleShowState
)

// names are the stable identifiers used in configuration (key bindings).
var names = map[Command]string{
	Quit:            "quit",
	Next:            "next",
	Previous:        "previous",
	Restart:         "restart",
	TogglePlay:      "toggle_play",
	ToggleLoop:      "toggle_loop",
	ToggleAutoplay:  "toggle_autoplay",
	ToggleShowState: "toggle_show_state",
}

// All lists every command in display order.
func All() []Command {
	return []Command{Quit, Next, Previous, Restart, TogglePlay, ToggleLoop, ToggleAutoplay, ToggleShowState}
}

// FromName resolves a configuration action name to its command.
func FromName(name string) (Command, bool) {
	for c, n := range names {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// String returns the configuration name of the command.
func (c Command) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}
