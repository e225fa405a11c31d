package validate

import (
	"errors"
	"strings"
)

// ErrInvalid is matched by every ValidationError via errors.Is
var ErrInvalid = errors.New("validation failed")

// ValidationError reports a form constraint violated before any request was sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrInvalid) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Errors collects several violations from one form
type Errors []*ValidationError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is(err, ErrInvalid) match
func (es Errors) Is(target error) bool {
	return target == ErrInvalid && len(es) > 0
}

// Err returns nil for an empty collection
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

func (es *Errors) add(field, msg string) {
	*es = append(*es, &ValidationError{Field: field, Message: msg})
}
