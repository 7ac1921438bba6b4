package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies fetch failures. All kinds are transient from the loop's
// point of view; the product is retried on the next scheduled tick.
type Kind string

const (
	KindTimeout  Kind = "timeout"
	KindUpstream Kind = "upstream"
	KindNetwork  Kind = "network"
)

type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a fetch that exceeded its readiness or
// request deadline.
func IsTimeout(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTimeout
}
