package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/snaptile/internal/config"
)

type savePhase int

const (
	saveHidden savePhase = iota
	savePreview
	saveResult
)

type diffKind int

const (
	diffSection diffKind = iota
	diffRemoved
	diffAdded
)

type diffLine struct {
	kind diffKind
	text string
}

var errNoChanges = errors.New("no changes to save")

// saveFunc persists cfg and reports whether the running daemon picked it up.
type saveFunc func(cfg *config.Config) (reloaded bool, err error)

// SaveOverlay lists the settings changed since the last save and asks for
// confirmation before writing them.
type SaveOverlay struct {
	phase        savePhase
	diffLines    []diffLine
	err          error
	reloaded     bool
	scrollOffset int
}

func (s SaveOverlay) Active() bool { return s.phase != saveHidden }

// SaveSucceeded reports whether the overlay is showing a successful write.
func (s SaveOverlay) SaveSucceeded() bool {
	return s.phase == saveResult && s.err == nil
}

// Show opens the preview, or a notice when current matches original.
func (s *SaveOverlay) Show(original, current *config.Config) {
	*s = SaveOverlay{phase: savePreview, diffLines: computeDiffLines(original, current)}
	if len(s.diffLines) == 0 {
		s.phase = saveResult
		s.err = errNoChanges
	}
}

// Update handles a key while the overlay is active. Any key dismisses the
// result box.
func (s SaveOverlay) Update(msg tea.Msg, cfg *config.Config, save saveFunc) SaveOverlay {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s
	}
	if s.phase == saveResult {
		s.phase = saveHidden
		return s
	}

	last := max(len(s.diffLines)-1, 0)
	switch km.String() {
	case "esc", "n", "q":
		s.phase = saveHidden
	case "enter", "y":
		s.reloaded, s.err = save(cfg)
		s.phase = saveResult
	case "up", "k":
		s.scrollOffset--
	case "down", "j":
		s.scrollOffset++
	case "pgup":
		s.scrollOffset -= 10
	case "pgdown":
		s.scrollOffset += 10
	case "home", "g":
		s.scrollOffset = 0
	case "end", "G":
		s.scrollOffset = last
	}
	s.scrollOffset = min(max(s.scrollOffset, 0), last)
	return s
}

// View renders the overlay centred in a width x height area.
func (s SaveOverlay) View(width, height int) string {
	var body string
	boxW := min(max(width-8, 30), 80)
	switch s.phase {
	case savePreview:
		body = s.previewBody(boxW-6, max(height-10, 3))
	case saveResult:
		boxW = min(boxW, 60)
		body = s.resultBody()
	default:
		return ""
	}
	box := overlayBoxStyle.Width(boxW).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

var (
	overlayBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(1, 2)
	overlayTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	sectionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Underline(true)
)

func (s SaveOverlay) previewBody(innerW, rows int) string {
	off := min(s.scrollOffset, max(len(s.diffLines)-rows, 0))
	end := min(off+rows, len(s.diffLines))

	var b strings.Builder
	b.WriteString(overlayTitleStyle.Render(fmt.Sprintf("Save config: %d change(s)", s.changes())))
	b.WriteString("\n\n")
	for _, dl := range s.diffLines[off:end] {
		text := dl.text
		if limit := innerW - 2; limit > 0 && len(text) > limit {
			text = text[:limit]
		}
		switch dl.kind {
		case diffAdded:
			b.WriteString(okStyle.Render("+ " + text))
		case diffRemoved:
			b.WriteString(errorStyle.UnsetBold().Render("- " + text))
		default:
			b.WriteString(sectionStyle.Render(text))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter/y: save  esc/n: cancel  j/k: scroll"))
	return b.String()
}

// changes counts edited settings; a modified value shows as a -/+ pair.
func (s SaveOverlay) changes() int {
	n := 0
	for i, dl := range s.diffLines {
		switch dl.kind {
		case diffAdded:
			n++
		case diffRemoved:
			if i+1 == len(s.diffLines) || s.diffLines[i+1].kind != diffAdded || diffPath(s.diffLines[i+1]) != diffPath(dl) {
				n++
			}
		}
	}
	return n
}

func diffPath(dl diffLine) string {
	path, _, _ := strings.Cut(dl.text, ": ")
	return path
}

func (s SaveOverlay) resultBody() string {
	var msg string
	switch {
	case s.err != nil:
		msg = errorStyle.Render("Error: " + s.err.Error())
	case s.reloaded:
		msg = okStyle.Bold(true).Render("Config saved") + "\n" + okStyle.Render("Running daemon reloaded")
	default:
		msg = okStyle.Bold(true).Render("Config saved") + "\n" + dimStyle.Render("Daemon not reloaded; changes apply on its next start")
	}
	return msg + "\n\n" + dimStyle.Render("press any key to dismiss")
}

// computeDiffLines lists changed settings as flattened key paths, grouped
// under a header line per top-level section. Identical configs give nil.
func computeDiffLines(original, current *config.Config) []diffLine {
	if original == nil || current == nil {
		return nil
	}
	before, err := flattenConfig(original)
	if err != nil {
		return nil
	}
	after, err := flattenConfig(current)
	if err != nil {
		return nil
	}

	old := make(map[string]string, len(before))
	for _, s := range before {
		old[s.path] = s.value
	}
	updated := make(map[string]string, len(after))
	for _, s := range after {
		updated[s.path] = s.value
	}

	// Removed paths keep their old position; new paths follow in order.
	paths := make([]string, 0, len(before)+len(after))
	for _, s := range before {
		paths = append(paths, s.path)
	}
	for _, s := range after {
		if _, ok := old[s.path]; !ok {
			paths = append(paths, s.path)
		}
	}

	var out []diffLine
	section := ""
	for _, p := range paths {
		was, hadOld := old[p]
		now, hasNew := updated[p]
		if hadOld && hasNew && was == now {
			continue
		}
		if top := topSection(p); top != section {
			section = top
			out = append(out, diffLine{kind: diffSection, text: top + ":"})
		}
		if hadOld {
			out = append(out, diffLine{kind: diffRemoved, text: p + ": " + was})
		}
		if hasNew {
			out = append(out, diffLine{kind: diffAdded, text: p + ": " + now})
		}
	}
	return out
}

type setting struct {
	path  string
	value string
}

func flattenConfig(cfg *config.Config) ([]setting, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, err
	}
	var out []setting
	flattenNode(&doc, "", &out)
	return out, nil
}

func flattenNode(node *yaml.Node, path string, out *[]setting) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, c := range node.Content {
			flattenNode(c, path, out)
		}
	case yaml.MappingNode:
		if len(node.Content) == 0 && path != "" {
			*out = append(*out, setting{path: path, value: "{}"})
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if path != "" {
				key = path + "." + key
			}
			flattenNode(node.Content[i+1], key, out)
		}
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			*out = append(*out, setting{path: path, value: "[]"})
		}
		for i, c := range node.Content {
			flattenNode(c, fmt.Sprintf("%s[%d]", path, i), out)
		}
	default:
		value := node.Value
		if node.Tag == "!!str" && value == "" {
			value = `""`
		}
		*out = append(*out, setting{path: path, value: value})
	}
}

func topSection(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

// cloneConfig deep copies cfg through its YAML form.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var clone config.Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return nil
	}
	return &clone
}
