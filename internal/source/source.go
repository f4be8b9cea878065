package source

// Snapshot is an immutable view of one sketch document. The editor host owns
// the text; every edit produces a new Snapshot with a higher Version. Nothing
// in the analyzer mutates a Snapshot after construction.
type Snapshot struct {
	URI     string
	Version int
	Text    string
}

// Position is a 0-based (line, character) pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// PositionAt maps a byte offset into text to a Position by counting newlines.
// It is a pure function of (text, offset); offsets past the end clamp to the
// final position.
func PositionAt(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	line := 0
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return Position{Line: line, Character: offset - lineStart}
}

// RangeAt maps a half-open byte offset pair to a Range.
func RangeAt(text string, start, end int) Range {
	return Range{Start: PositionAt(text, start), End: PositionAt(text, end)}
}

// LineRangeAt returns the range covering the token of length n starting at
// offset. Convenience for diagnostics that underline a single match.
func LineRangeAt(text string, offset, n int) Range {
	return RangeAt(text, offset, offset+n)
}
