package hotkeys

import (
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/snaptile/internal/wm"
)

// modifierOrder is the canonical order of modifiers in a normalized chord.
var modifierOrder = []string{"Control", "Shift", "Mod1", "Mod4"}

var modifierAliases = map[string]string{
	"control": "Control",
	"ctrl":    "Control",
	"shift":   "Shift",
	"mod1":    "Mod1",
	"alt":     "Mod1",
	"mod4":    "Mod4",
	"super":   "Mod4",
	"meta":    "Mod4",
	"win":     "Mod4",
}

var keyAliases = map[string]string{
	"left":       "Left",
	"arrowleft":  "Left",
	"right":      "Right",
	"arrowright": "Right",
	"up":         "Up",
	"arrowup":    "Up",
	"down":       "Down",
	"arrowdown":  "Down",
	"tab":        "Tab",
	"esc":        "Escape",
	"escape":     "Escape",
	"enter":      "Return",
	"return":     "Return",
	"space":      "space",
	"home":       "Home",
	"end":        "End",
}

// Normalize rewrites a chord into the X keybinding form, e.g. "super+left"
// becomes "Mod4-Left". Modifiers may be separated by "-" or "+".
func Normalize(chord string) (string, error) {
	chord = strings.TrimSpace(chord)
	if chord == "" {
		return "", fmt.Errorf("empty key chord")
	}
	parts := strings.FieldsFunc(chord, func(r rune) bool { return r == '-' || r == '+' })
	if len(parts) == 0 {
		return "", fmt.Errorf("invalid key chord %q", chord)
	}

	mods := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierAliases[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return "", fmt.Errorf("invalid key chord %q: unknown modifier %q", chord, p)
		}
		mods[mod] = true
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	if alias, ok := keyAliases[strings.ToLower(key)]; ok {
		key = alias
	} else if len(key) == 1 {
		key = strings.ToLower(key)
	} else if isFunctionKey(key) {
		key = strings.ToUpper(key)
	}
	if key == "" {
		return "", fmt.Errorf("invalid key chord %q: missing key", chord)
	}

	out := make([]string, 0, len(mods)+1)
	for _, mod := range modifierOrder {
		if mods[mod] {
			out = append(out, mod)
		}
	}
	return strings.Join(append(out, key), "-"), nil
}

func isFunctionKey(key string) bool {
	if len(key) < 2 || len(key) > 3 || (key[0] != 'f' && key[0] != 'F') {
		return false
	}
	for _, r := range key[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Binding pairs a normalized chord with a window command.
type Binding struct {
	Chord   string `json:"chord"`
	Command string `json:"command"`
}

// Keymap resolves chords to window commands.
type Keymap struct {
	bindings map[string]string
}

// NewKeymap validates bindings and returns a keymap. Two chords that
// normalize to the same key are rejected.
func NewKeymap(bindings map[string]string) (*Keymap, error) {
	known := make(map[string]bool)
	for _, name := range wm.Commands() {
		known[name] = true
	}

	chords := make([]string, 0, len(bindings))
	for chord := range bindings {
		chords = append(chords, chord)
	}
	sort.Strings(chords)

	km := &Keymap{bindings: make(map[string]string, len(bindings))}
	for _, chord := range chords {
		command := strings.TrimSpace(bindings[chord])
		if !known[command] {
			return nil, fmt.Errorf("hotkey %q: unknown command %q", chord, command)
		}
		norm, err := Normalize(chord)
		if err != nil {
			return nil, err
		}
		if prev, ok := km.bindings[norm]; ok && prev != command {
			return nil, fmt.Errorf("hotkey %q: %s is already bound to %q", chord, norm, prev)
		}
		km.bindings[norm] = command
	}
	return km, nil
}

// Lookup returns the command bound to chord.
func (k *Keymap) Lookup(chord string) (string, bool) {
	if k == nil {
		return "", false
	}
	norm, err := Normalize(chord)
	if err != nil {
		return "", false
	}
	command, ok := k.bindings[norm]
	return command, ok
}

// Bindings returns all bindings sorted by chord.
func (k *Keymap) Bindings() []Binding {
	if k == nil {
		return nil
	}
	out := make([]Binding, 0, len(k.bindings))
	for chord, command := range k.bindings {
		out = append(out, Binding{Chord: chord, Command: command})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chord < out[j].Chord })
	return out
}

// Len returns the number of bindings.
func (k *Keymap) Len() int {
	if k == nil {
		return 0
	}
	return len(k.bindings)
}
