package extract

import (
	"errors"
	"fmt"
)

// Kind classifies extraction failures. Blocked is kept distinct from NotFound
// so callers can apply a longer backoff when a page challenged the request.
type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindBlocked   Kind = "blocked"
	KindMalformed Kind = "malformed"
)

type Error struct {
	Kind Kind
	URL  string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %s (%s)", e.Kind, e.Msg, e.URL)
}

// IsBlocked reports whether err is an extraction failure caused by a
// bot-detection challenge.
func IsBlocked(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindBlocked
}
