// Package ingest loads a clinical document corpus from disk and hands the
// pipeline normalized text. It is the thin I/O edge of the system: file
// type detection, text extraction and encoding cleanup, nothing semantic.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/jbaudry/chronotrace/internal/model"
)

// Reader loads documents from a corpus directory
type Reader struct {
	maxFileBytes int64
}

// NewReader creates a corpus reader
func NewReader(cfg model.IngestConfig) *Reader {
	max := cfg.MaxFileBytes
	if max <= 0 {
		max = 10_000_000
	}
	return &Reader{maxFileBytes: max}
}

// LoadDir reads every supported file under dir (non-recursive). Corrupted
// or unreadable files become recorded failures; the rest of the corpus
// loads normally. Document ids are file names without extension.
func (r *Reader) LoadDir(dir string) (map[string]string, []model.DocumentFailure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read corpus dir: %w", err)
	}

	docs := make(map[string]string)
	var failures []model.DocumentFailure

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".pdf" && ext != ".html" && ext != ".htm" {
			continue
		}
		docID := strings.TrimSuffix(name, filepath.Ext(name))

		text, err := r.ReadFile(filepath.Join(dir, name))
		if err != nil {
			failures = append(failures, model.DocumentFailure{
				DocID: docID,
				Stage: "ingest",
				Error: err.Error(),
			})
			continue
		}
		docs[docID] = text
	}
	return docs, failures, nil
}

// ReadFile extracts normalized text from a single document file
func (r *Reader) ReadFile(path string) (string, error) {
	var raw string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		raw, err = r.readPDF(path)
	case ".html", ".htm":
		raw, err = r.readHTML(path)
	default:
		raw, err = r.readText(path)
	}
	if err != nil {
		return "", err
	}
	return Normalize(raw), nil
}

// readText reads a plain text file, decoding Latin-1 scans that predate the
// UTF-8 migration of the archive
func (r *Reader) readText(path string) (string, error) {
	data, err := r.readCapped(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return decodeLatin1(data), nil
}

// readPDF extracts the plain text layer of a PDF
func (r *Reader) readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", model.ErrExtraction, err)
	}
	defer func() { _ = f.Close() }()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extract pdf text: %v", model.ErrExtraction, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", model.ErrExtraction, err)
	}
	return buf.String(), nil
}

// readHTML extracts visible text, skipping script/style subtrees
func (r *Reader) readHTML(path string) (string, error) {
	data, err := r.readCapped(path)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", model.ErrExtraction, err)
	}
	return visibleText(doc), nil
}

func (r *Reader) readCapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", model.ErrExtraction, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, r.maxFileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", model.ErrExtraction, err)
	}
	return data, nil
}

// visibleText walks the DOM collecting text nodes outside script/style tags
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// decodeLatin1 maps each byte to its code point; Latin-1 is a strict prefix
// of Unicode so this cannot fail
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
