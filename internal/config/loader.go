package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceBuiltin SourceKind = "builtin"
	SourceFile    SourceKind = "file"
)

// Source records where an effective value came from.
type Source struct {
	Kind   SourceKind
	Name   string // builtin layout or "defaults"
	File   string
	Line   int
	Column int
}

func fileSource(file string, node *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: node.Line, Column: node.Column}
}

type LoadResult struct {
	Config      *Config
	Sources     map[string]Source // YAML path -> last file that set it
	LayoutBases map[string]string // layout name -> builtin base name
	Files       []string          // loaded files, includes first
	Path        string            // main config path
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/snaptile/config.yaml.
func DefaultConfigPath() (string, error) {
	xdg.Reload()
	if xdg.ConfigHome == "" {
		return "", fmt.Errorf("failed to resolve config directory")
	}
	return filepath.Join(xdg.ConfigHome, "snaptile", "config.yaml"), nil
}

// Load reads the config at the default path.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads the default path and keeps per-key sources for
// config explain.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	var layer fileLayer
	if _, err := os.Stat(path); err == nil {
		l := &loader{seen: make(map[string]bool)}
		if layer, err = l.load(path); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if layer.sources == nil {
		layer.sources = map[string]Source{}
	}

	cfg, layoutBases, err := BuildEffectiveConfig(layer.raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, withSource(err, layer.sources)
	}

	return &LoadResult{
		Config:      cfg,
		Sources:     layer.sources,
		LayoutBases: layoutBases,
		Files:       layer.files,
		Path:        path,
	}, nil
}

// fileLayer is one file merged over its includes.
type fileLayer struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
}

func (l *fileLayer) apply(over fileLayer) {
	l.raw = l.raw.merge(over.raw)
	if l.sources == nil {
		l.sources = make(map[string]Source, len(over.sources))
	}
	for p, src := range over.sources {
		l.sources[p] = src
	}
	l.files = append(l.files, over.files...)
}

// loader follows includes depth first. A file reached twice is merged once;
// a file that includes itself through the chain is an error.
type loader struct {
	seen  map[string]bool
	chain []string
}

func (l *loader) load(path string) (fileLayer, error) {
	canon := canonicalPath(path)
	for _, p := range l.chain {
		if p == canon {
			return fileLayer{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(l.chain, " -> "), canon)
		}
	}
	if l.seen[canon] {
		return fileLayer{}, nil
	}
	l.seen[canon] = true

	data, err := os.ReadFile(canon)
	if err != nil {
		return fileLayer{}, fmt.Errorf("%s: failed to read: %w", canon, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fileLayer{}, fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}
	var raw RawConfig
	if err := decodeStrictYAML(data, &raw); err != nil {
		return fileLayer{}, fmt.Errorf("%s: %w", canon, err)
	}
	root := rootMapping(&doc)

	l.chain = append(l.chain, canon)
	defer func() { l.chain = l.chain[:len(l.chain)-1] }()

	var out fileLayer
	for _, ref := range includeNodes(root) {
		paths, err := expandInclude(canon, ref.Value)
		if err != nil {
			return fileLayer{}, fmt.Errorf("%s:%d:%d: include %q: %w", canon, ref.Line, ref.Column, ref.Value, err)
		}
		for _, p := range paths {
			inc, err := l.load(p)
			if err != nil {
				return fileLayer{}, err
			}
			out.apply(inc)
		}
	}

	// The including file wins over everything it includes.
	self := fileLayer{raw: raw, sources: make(map[string]Source), files: []string{canon}}
	walkSources(root, canon, "", self.sources)
	out.apply(self)
	return out, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// canonicalPath resolves symlinks where it can so one file is never loaded
// under two names.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// expandInclude resolves an include relative to the including file. A
// directory expands to its *.yaml and *.yml files and a pattern to its
// matches, both sorted.
func expandInclude(baseFile, include string) ([]string, error) {
	if include == "" {
		return nil, fmt.Errorf("path is empty")
	}
	path := expandHome(include)
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(baseFile), path)
	}

	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", path)
		}
		sort.Strings(matches)
		return matches, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			if !ent.IsDir() {
				files = append(files, filepath.Join(path, ent.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func rootMapping(doc *yaml.Node) *yaml.Node {
	node := doc
	if node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	return node
}

// walkSources records the position of every mapping value under prefix.
// Sequences are recorded as a whole.
func walkSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}
		out[path] = fileSource(file, val)
		walkSources(val, file, path, out)
	}
}

// includeNodes returns the scalar nodes of the top-level include key.
func includeNodes(root *yaml.Node) []*yaml.Node {
	if root == nil {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			return []*yaml.Node{val}
		case yaml.SequenceNode:
			var out []*yaml.Node
			for _, item := range val.Content {
				if item.Kind == yaml.ScalarNode {
					out = append(out, item)
				}
			}
			return out
		}
	}
	return nil
}

// withSource attaches the file position of a validation error's path, or of
// its closest parent that came from a file.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	for path := verr.Path; path != ""; {
		if src, ok := sources[path]; ok {
			verr.Source = src
			break
		}
		i := strings.LastIndex(path, ".")
		if i < 0 {
			break
		}
		path = path[:i]
	}
	return err
}
