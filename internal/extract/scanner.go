package extract

// scanState is the state of the delimiter scanner.
type scanState int

const (
	stateQuoted scanState = iota
	stateEscape
)

// ScanObject scans forward from start, which must index an opening brace,
// counting brace depth until it returns to zero. It returns the index just
// past the closing brace. Braces inside string literals are counted too: the
// scan is only ever started at a known object boundary, and ignoring quotes
// keeps it working on text that is itself JSON-string-escaped.
func ScanObject(text string, start int) (int, bool) {
	if start < 0 || start >= len(text) || text[start] != '{' {
		return 0, false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// ScanQuoted scans a JSON string literal body that begins at start (the byte
// after the opening quote) and returns the index of the closing quote. A quote
// preceded by an unescaped backslash does not terminate the literal.
func ScanQuoted(text string, start int) (int, bool) {
	if start < 0 || start > len(text) {
		return 0, false
	}
	state := stateQuoted
	for i := start; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateEscape:
			state = stateQuoted
		case stateQuoted:
			switch c {
			case '\\':
				state = stateEscape
			case '"':
				return i, true
			}
		}
	}
	return 0, false
}

// OpenBraceBefore walks backward from pos and returns the index of the
// unescaped opening brace of the object enclosing pos. Complete objects that
// close before pos are skipped by tracking depth in reverse. pos must lie
// outside a string literal; braces inside string literals are ignored.
func OpenBraceBefore(text string, pos int) int {
	if pos > len(text) {
		pos = len(text)
	}
	depth := 0
	inString := false
	for i := pos - 1; i >= 0; i-- {
		c := text[i]
		if c == '"' && !escapedAt(text, i) {
			inString = !inString
			continue
		}
		if inString || (c != '{' && c != '}') {
			continue
		}
		if escapedAt(text, i) {
			continue
		}
		if c == '}' {
			depth++
			continue
		}
		if depth == 0 {
			return i
		}
		depth--
	}
	return -1
}

// escapedAt reports whether text[i] is preceded by an odd number of
// backslashes.
func escapedAt(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
