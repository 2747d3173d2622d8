package profile

import (
	"errors"
	"fmt"
)

// Envelope failure causes.
var (
	ErrNotEnvelope = errors.New("not a signed-data envelope")
	ErrTruncated   = errors.New("envelope truncated")
	ErrNoPayload   = errors.New("envelope carries no payload")
)

// EnvelopeError reports bytes that could not be unwrapped into a payload.
type EnvelopeError struct {
	Err error
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("envelope: %v", e.Err)
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

// ExtractionKind distinguishes why a payload could not become a Record.
type ExtractionKind int

const (
	KindInvalidPayload ExtractionKind = iota // not a property-list dictionary
	KindMissingKey                           // required key absent
	KindWrongType                            // required key present with the wrong type
)

func (k ExtractionKind) String() string {
	switch k {
	case KindInvalidPayload:
		return "invalid payload"
	case KindMissingKey:
		return "missing key"
	case KindWrongType:
		return "wrong type"
	default:
		return fmt.Sprintf("ExtractionKind(%d)", int(k))
	}
}

// ExtractionError reports a payload that does not describe a profile.
type ExtractionError struct {
	Kind ExtractionKind
	Key  string // empty for KindInvalidPayload
	Err  error
}

func (e *ExtractionError) Error() string {
	switch {
	case e.Key == "" && e.Err != nil:
		return fmt.Sprintf("extract: %s: %v", e.Kind, e.Err)
	case e.Key == "":
		return fmt.Sprintf("extract: %s", e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("extract: %s %q: %v", e.Kind, e.Key, e.Err)
	default:
		return fmt.Sprintf("extract: %s %q", e.Kind, e.Key)
	}
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsMalformed reports whether err came from decoding or extracting a single
// profile file, as opposed to I/O.
func IsMalformed(err error) bool {
	var ee *EnvelopeError
	var xe *ExtractionError
	return errors.As(err, &ee) || errors.As(err, &xe)
}
