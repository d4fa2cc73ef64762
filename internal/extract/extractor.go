// Package extract turns uploaded resumes into plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/lu4p/cat"

	"github.com/hyperjump/matchfeed/internal/models"
)

// DefaultMaxBytes bounds the size of an uploaded resume.
const DefaultMaxBytes = 10 << 20

// SupportedExtensions lists the resume formats ExtractBytes understands.
var SupportedExtensions = []string{".pdf", ".docx", ".rtf", ".odt", ".txt", ".md"}

// Extractor extracts plain text from resume files.
type Extractor struct {
	maxBytes int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes sets the largest accepted input.
func WithMaxBytes(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxBytes returns the largest accepted input.
func (e *Extractor) MaxBytes() int {
	return e.maxBytes
}

// Extract reads the file at path and returns its cleaned text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on ext (with leading dot, e.g. ".pdf").
// Unsupported formats, oversized input, unreadable documents and documents without text are
// all invalid input.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if len(content) > e.maxBytes {
		return "", fmt.Errorf("%w: resume exceeds %d bytes", models.ErrInvalidInput, e.maxBytes)
	}
	var (
		text string
		err  error
	)
	switch ext = strings.ToLower(ext); ext {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".rtf", ".odt":
		text, err = cat.FromBytes(content)
	case ".txt", ".md":
		text = extractPlain(content)
	default:
		return "", fmt.Errorf("%w: unsupported resume format %q", models.ErrInvalidInput, ext)
	}
	if err != nil {
		return "", fmt.Errorf("%w: extract %s: %v", models.ErrInvalidInput, ext, err)
	}
	text = Clean(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text found in resume", models.ErrInvalidInput)
	}
	return text, nil
}

// Clean drops control characters and collapses runs of whitespace, keeping paragraph breaks
// as single newlines.
func Clean(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Map(func(r rune) rune {
			if r == '\t' {
				return ' '
			}
			if unicode.IsControl(r) || r == unicode.ReplacementChar {
				return -1
			}
			return r
		}, line)
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
