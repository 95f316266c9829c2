// Package input turns key tokens from a line-oriented reader into jukebox
// commands.
package input

import (
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/evhagen/spindle/internal/domain/command"
)

// defaultTokens is the built-in binding of each command to its key token.
var defaultTokens = map[command.Command]string{
	command.Quit:            "q",
	command.Previous:        "j",
	command.Next:            "k",
	command.Restart:         "r",
	command.TogglePlay:      "p",
	command.ToggleLoop:      "l",
	command.ToggleAutoplay:  "a",
	command.ToggleShowState: "s",
}

// Keymap resolves input tokens to commands.
type Keymap map[string]command.Command

// Binding is one active token assignment, used for display.
type Binding struct {
	Token   string
	Command command.Command
}

// NewKeymap builds the token table from the defaults and per-action
// overrides (action name → token). Unknown actions, malformed tokens, and
// two actions sharing a token are configuration errors.
func NewKeymap(overrides map[string]string) (Keymap, error) {
	tokens := make(map[command.Command]string, len(defaultTokens))
	for cmd, tok := range defaultTokens {
		tokens[cmd] = tok
	}
	for action, tok := range overrides {
		cmd, ok := command.FromName(action)
		if !ok {
			return nil, errors.Newf("unknown action %q in key bindings", action)
		}
		if err := validateToken(tok); err != nil {
			return nil, errors.Wrapf(err, "binding for %s", action)
		}
		tokens[cmd] = tok
	}

	km := make(Keymap, len(tokens))
	for cmd, tok := range tokens {
		if prev, taken := km[tok]; taken {
			return nil, errors.Newf("token %q bound to both %s and %s", tok, prev, cmd)
		}
		km[tok] = cmd
	}
	return km, nil
}

// Bindings lists the active assignments in command display order.
func (k Keymap) Bindings() []Binding {
	byCommand := make(map[command.Command]string, len(k))
	for tok, cmd := range k {
		byCommand[cmd] = tok
	}
	out := make([]Binding, 0, len(byCommand))
	for _, cmd := range command.All() {
		if tok, ok := byCommand[cmd]; ok {
			out = append(out, Binding{Token: tok, Command: cmd})
		}
	}
	return out
}

func validateToken(tok string) error {
	r, size := utf8.DecodeRuneInString(tok)
	if size == 0 || size != len(tok) {
		return errors.Newf("token %q must be a single character", tok)
	}
	// A lone invalid byte decodes as (RuneError, 1) and would pass the
	// length check.
	if r == utf8.RuneError && size == 1 {
		return errors.Newf("token %q is not valid UTF-8", tok)
	}
	if unicode.IsSpace(r) {
		return errors.Newf("token %q must not be whitespace", tok)
	}
	return nil
}
