package sqlparse

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ParseError reports query text the parser could not turn into a plan.
type ParseError struct {
	Query  string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Query, e.Detail)
}

func NewParseError(query, detail string) *ParseError {
	return &ParseError{Query: query, Detail: detail}
}

// IsParseError reports whether err wraps a ParseError.
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}
