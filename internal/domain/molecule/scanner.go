package molecule

// Scanner is a cursor over an ASCII line-notation string.  It never panics:
// reading past the end yields ok == false.
type Scanner struct {
	src string
	pos int
}

// NewScanner returns a scanner positioned at the start of src.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// Peek returns the current byte without consuming it.
func (s *Scanner) Peek() (byte, bool) {
	if s.pos >= len(s.src) {
		return 0, false
	}
	return s.src[s.pos], true
}

// PeekAt returns the byte n positions past the cursor.
func (s *Scanner) PeekAt(n int) (byte, bool) {
	i := s.pos + n
	if n < 0 || i >= len(s.src) {
		return 0, false
	}
	return s.src[i], true
}

// Pop consumes and returns the current byte.
func (s *Scanner) Pop() (byte, bool) {
	if s.pos >= len(s.src) {
		return 0, false
	}
	c := s.src[s.pos]
	s.pos++
	return c, true
}

// Back steps the cursor back one byte.  It is a no-op at the start.
func (s *Scanner) Back() {
	if s.pos > 0 {
		s.pos--
	}
}

// Cursor returns the byte offset of the next unread character.
func (s *Scanner) Cursor() int { return s.pos }

// IsDone reports whether the whole input has been consumed.
func (s *Scanner) IsDone() bool { return s.pos >= len(s.src) }

// Source returns the full input.
func (s *Scanner) Source() string { return s.src }

// popIf consumes the current byte when it equals c.
func (s *Scanner) popIf(c byte) bool {
	if b, ok := s.Peek(); ok && b == c {
		s.pos++
		return true
	}
	return false
}

// popDigits consumes up to max decimal digits and returns their value and
// count.  max <= 0 means unbounded.
func (s *Scanner) popDigits(max int) (value, n int) {
	for max <= 0 || n < max {
		c, ok := s.Peek()
		if !ok || !isDigit(c) {
			break
		}
		s.pos++
		value = value*10 + int(c-'0')
		n++
	}
	return value, n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

//Personal.AI order the ending
