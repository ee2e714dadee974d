package molecule

import (
	"errors"
	"fmt"
)

// ParseError is the common part of every line-notation failure: a message and
// the byte offset in the input where the problem was detected.
type ParseError struct {
	Message string
	Offset  int
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at offset %d: %v", e.Message, e.Offset, e.Cause)
	}
	return fmt.Sprintf("%s at offset %d", e.Message, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// LexicalError reports an unrecognized character or symbol.
type LexicalError struct{ ParseError }

// UnexpectedEndError reports input that ended while a construct was still open.
type UnexpectedEndError struct{ ParseError }

// StructuralError reports syntactically valid text that describes an invalid
// graph: unbalanced branches, unclosed rings, dangling bonds, values out of
// range or nesting beyond the configured limit.
type StructuralError struct{ ParseError }

func lexicalErrorf(offset int, format string, args ...interface{}) error {
	return &LexicalError{ParseError{Message: fmt.Sprintf(format, args...), Offset: offset}}
}

func unexpectedEndf(offset int, format string, args ...interface{}) error {
	return &UnexpectedEndError{ParseError{Message: fmt.Sprintf(format, args...), Offset: offset}}
}

func structuralErrorf(offset int, format string, args ...interface{}) error {
	return &StructuralError{ParseError{Message: fmt.Sprintf(format, args...), Offset: offset}}
}

// NewLexicalError, NewUnexpectedEndError and NewStructuralError let sibling
// parsers (the pattern compiler) report failures with the same types.
func NewLexicalError(offset int, msg string) error { return lexicalErrorf(offset, "%s", msg) }

func NewUnexpectedEndError(offset int, msg string) error { return unexpectedEndf(offset, "%s", msg) }

func NewStructuralError(offset int, msg string) error { return structuralErrorf(offset, "%s", msg) }

// ErrorOffset extracts the input offset carried by any parse failure in err's
// chain.  The second result is false when err carries none.
func ErrorOffset(err error) (int, bool) {
	var (
		lex *LexicalError
		end *UnexpectedEndError
		st  *StructuralError
		pe  *ParseError
	)
	switch {
	case errors.As(err, &lex):
		return lex.Offset, true
	case errors.As(err, &end):
		return end.Offset, true
	case errors.As(err, &st):
		return st.Offset, true
	case errors.As(err, &pe):
		return pe.Offset, true
	}
	return 0, false
}

// RecordError reports a malformed structure-data record.
type RecordError struct {
	Record int
	Line   int
	Msg    string
	Cause  error
}

func (e *RecordError) Error() string {
	s := fmt.Sprintf("sdf record %d line %d: %s", e.Record, e.Line, e.Msg)
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *RecordError) Unwrap() error { return e.Cause }

//Personal.AI order the ending
