package codec

import (
	"errors"
	"fmt"
)

// ParseError reports malformed query text.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// GenerateError reports a form that cannot be rendered as text.
type GenerateError struct {
	Tag     string
	Message string
}

func (e *GenerateError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("generate %s: %s", e.Tag, e.Message)
	}
	return "generate: " + e.Message
}
