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

	"gopkg.in/yaml.v3"
)

// layer is one file merged with everything it includes.
type layer struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
}

func (l *layer) apply(next layer) {
	l.raw = l.raw.merge(next.raw)
	for k, src := range next.sources {
		l.sources[k] = src
	}
	l.files = append(l.files, next.files...)
}

// includeLoader walks include: references depth first. Includes are merged
// before the including file so the including file always wins.
type includeLoader struct {
	seen map[string]bool
}

func newIncludeLoader() *includeLoader {
	return &includeLoader{seen: map[string]bool{}}
}

func (il *includeLoader) load(path string, chain []string) (layer, error) {
	out := layer{sources: map[string]Source{}}

	file := canonicalPath(path)
	for _, prev := range chain {
		if prev == file {
			return out, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(chain, " -> "), file)
		}
	}
	if il.seen[file] {
		return out, nil
	}
	il.seen[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return out, fmt.Errorf("%s: failed to read: %w", file, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return out, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}
	var own RawConfig
	if err := decodeStrict(data, &own); err != nil {
		return out, fmt.Errorf("%s: %w", file, err)
	}

	root := documentRoot(&doc)
	for _, ref := range includeRefs(root, file) {
		paths, err := expandInclude(file, ref.value)
		if err != nil {
			return out, fmt.Errorf("%s: include %q: %w", ref.at.position(), ref.value, err)
		}
		for _, p := range paths {
			inc, err := il.load(p, append(chain, file))
			if err != nil {
				return out, err
			}
			out.apply(inc)
		}
	}

	self := layer{raw: own, sources: map[string]Source{}, files: []string{file}}
	recordSources(root, file, "", self.sources)
	out.apply(self)
	return out, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// canonicalPath resolves symlinks when it can so cycles are detected on the
// real file.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// expandInclude resolves an include relative to the including file. A
// directory expands to its *.yaml and *.yml files in name order.
func expandInclude(from, include string) ([]string, error) {
	if include == "" {
		return nil, errors.New("path is empty")
	}
	path := include
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(from), path)
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
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func nodeSource(file string, n *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}
}

// recordSources maps every dotted key under node to its value position.
// Sequences are recorded as a whole.
func recordSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			val := node.Content[i+1]
			out[key] = nodeSource(file, val)
			recordSources(val, file, key, out)
		}
	case yaml.SequenceNode:
		if prefix != "" {
			out[prefix] = nodeSource(file, node)
		}
	}
}

type includeRef struct {
	value string
	at    Source
}

func includeRefs(root *yaml.Node, file string) []includeRef {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			return []includeRef{{value: val.Value, at: nodeSource(file, val)}}
		case yaml.SequenceNode:
			var refs []includeRef
			for _, item := range val.Content {
				if item.Kind == yaml.ScalarNode {
					refs = append(refs, includeRef{value: item.Value, at: nodeSource(file, item)})
				}
			}
			return refs
		}
		return nil
	}
	return nil
}
