package models

import (
	"unicode/utf16"
	"unicode/utf8"
)

// ByteOffset converts a UTF-16 column on line into a byte offset, clamped to the line
// and never splitting a rune.
func ByteOffset(line string, column int) int {
	if column <= 0 {
		return 0
	}
	units := 0
	for i, r := range line {
		if units >= column {
			return i
		}
		units += utf16.RuneLen(r)
		if units > column {
			// column points inside a surrogate pair
			return i
		}
	}
	return len(line)
}

// UTF16Column converts a byte offset on line into a UTF-16 column.
func UTF16Column(line string, offset int) int {
	if offset > len(line) {
		offset = len(line)
	}
	units := 0
	for i, r := range line {
		if i >= offset {
			break
		}
		units += utf16.RuneLen(r)
	}
	return units
}

// UTF16Len is the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	return UTF16Column(s, len(s))
}

// RuneCount is the number of characters in s.
func RuneCount(s string) int {
	return utf8.RuneCountInString(s)
}
