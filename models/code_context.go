package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Position is a zero-based line/column location in a document. Column counts UTF-16 code units.
type Position struct {
	Line   int `json:"line" mapstructure:"line"`
	Column int `json:"column" mapstructure:"column"`
}

// Range spans two positions, end exclusive.
type Range struct {
	Start Position `json:"start" mapstructure:"start"`
	End   Position `json:"end" mapstructure:"end"`
}

// IsEmpty reports whether the range selects no text.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// CodeContext is the snippet, language, file identity and cursor captured for a single triggered operation.
type CodeContext struct {
	Code         string
	Language     string
	FileIdentity string
	Line         int
	Column       int
}

// Document is an open text document as last synchronized by the editor.
type Document struct {
	URI        string
	LanguageID string
	Version    int
	Text       string
}

// Lines splits the document text on newlines.
func (d *Document) Lines() []string {
	return strings.Split(d.Text, "\n")
}

// TextInRange returns the document text covered by r, clamped to the document bounds.
func (d *Document) TextInRange(r Range) string {
	lines := d.Lines()
	start := d.offset(lines, r.Start)
	end := d.offset(lines, r.End)
	if end < start {
		start, end = end, start
	}
	return d.Text[start:end]
}

// FullRange returns the range covering the whole document.
func (d *Document) FullRange() Range {
	lines := d.Lines()
	last := len(lines) - 1
	return Range{End: Position{Line: last, Column: UTF16Len(lines[last])}}
}

func (d *Document) offset(lines []string, p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(lines) {
		return len(d.Text)
	}
	offset := 0
	for i := 0; i < p.Line; i++ {
		offset += len(lines[i]) + 1
	}
	return offset + ByteOffset(lines[p.Line], p.Column)
}

// WordAt returns the identifier-like word touching the given position.
func (d *Document) WordAt(p Position) string {
	lines := d.Lines()
	if p.Line < 0 || p.Line >= len(lines) {
		return ""
	}
	line := lines[p.Line]
	col := ByteOffset(line, p.Column)

	start := col
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	end := col
	for end < len(line) {
		r, size := utf8.DecodeRuneInString(line[end:])
		if !isWordRune(r) {
			break
		}
		end += size
	}
	return line[start:end]
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
