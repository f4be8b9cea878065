package source

// The stripper classifies every byte of a sketch as comment or not in one
// left-to-right pass. String and character literals are tracked so that quote
// contents are never mistaken for comment delimiters, and vice versa.
//
// Conservative choices, deliberate:
//   - an unterminated block comment runs to end of text
//   - an unterminated string swallows the rest of the file, so a stray '/'
//     after a broken literal never opens a comment

type span struct {
	start, end int // half-open byte range
}

const (
	modeCode = iota
	modeString
	modeChar
	modeLineComment
	modeBlockComment
)

// commentSpans scans text once and returns every comment span, delimiters
// included. Line comment spans exclude the terminating newline.
func commentSpans(text string) []span {
	var spans []span
	mode := modeCode
	start := 0
	n := len(text)

	i := 0
	for i < n {
		c := text[i]
		switch mode {
		case modeCode:
			switch {
			case c == '"':
				mode = modeString
				i++
			case c == '\'':
				mode = modeChar
				i++
			case c == '/' && i+1 < n && text[i+1] == '/':
				mode = modeLineComment
				start = i
				i += 2
			case c == '/' && i+1 < n && text[i+1] == '*':
				mode = modeBlockComment
				start = i
				i += 2
			default:
				i++
			}
		case modeString, modeChar:
			switch {
			case c == '\\':
				// Escape consumes two bytes atomically.
				i += 2
			case c == '"' && mode == modeString:
				mode = modeCode
				i++
			case c == '\'' && mode == modeChar:
				mode = modeCode
				i++
			default:
				i++
			}
		case modeLineComment:
			if c == '\n' {
				spans = append(spans, span{start, i})
				mode = modeCode
			}
			i++
		case modeBlockComment:
			if c == '*' && i+1 < n && text[i+1] == '/' {
				spans = append(spans, span{start, i + 2})
				mode = modeCode
				i += 2
			} else {
				i++
			}
		}
	}

	if mode == modeLineComment || mode == modeBlockComment {
		spans = append(spans, span{start, n})
	}
	return spans
}

// IsInComment reports whether the byte at offset falls inside a comment.
// String and char literal contents are not comments.
func IsInComment(text string, offset int) bool {
	if offset < 0 || offset >= len(text) {
		return false
	}
	for _, s := range commentSpans(text) {
		if offset >= s.start && offset < s.end {
			return true
		}
		if s.start > offset {
			break
		}
	}
	return false
}

// Strip replaces every comment byte with a space, preserving newlines, so
// offsets and line/column positions computed on the stripped text match the
// original. Literal contents pass through verbatim.
func Strip(text string) string {
	spans := commentSpans(text)
	if len(spans) == 0 {
		return text
	}
	b := []byte(text)
	for _, s := range spans {
		for i := s.start; i < s.end; i++ {
			if b[i] != '\n' {
				b[i] = ' '
			}
		}
	}
	return string(b)
}
