package sources

import "fmt"

// ParseError reports upstream output that could not be decoded.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse response: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
