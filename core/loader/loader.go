package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/sagent/core/agent"
)

// ErrNoMatch is returned by Glob when the pattern matches no file.
var ErrNoMatch = errors.New("pattern matched no files")

// HTML converts an HTML page to markdown.
func HTML(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(raw))
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// File loads path as a context document whose ID is the path. HTML files
// (.html, .htm) are converted to markdown; anything else is read as text.
func File(path string) (agent.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return agent.Document{}, err
	}
	defer func() { _ = f.Close() }()

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err = HTML(f)
	default:
		var raw []byte
		raw, err = io.ReadAll(f)
		text = string(raw)
	}
	if err != nil {
		return agent.Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	return agent.Document{ID: path, Text: text}, nil
}

// Glob loads every regular file matching pattern, sorted by path.
func Glob(pattern string) ([]agent.Document, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	slices.Sort(paths)

	var documents []agent.Document
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}

		doc, err := File(path)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	return documents, nil
}

// Dir loads the HTML pages directly inside dir, sorted by path.
func Dir(dir string) ([]agent.Document, error) {
	var documents []agent.Document
	for _, ext := range []string{"*.html", "*.htm"} {
		docs, err := Glob(filepath.Join(dir, ext))
		if err != nil && !errors.Is(err, ErrNoMatch) {
			return nil, err
		}
		documents = append(documents, docs...)
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: no html pages in %s", ErrNoMatch, dir)
	}
	slices.SortFunc(documents, func(a, b agent.Document) int { return strings.Compare(a.ID, b.ID) })
	return documents, nil
}
