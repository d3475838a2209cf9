package quiz

import (
	"errors"
	"fmt"
)

// GenericMessage is the only text an upstream failure ever shows a caller.
const GenericMessage = "Internal Server Error"

type Kind int

const (
	KindUpstream Kind = iota
	KindInsufficientCandidates
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientCandidates:
		return "insufficient_candidates"
	default:
		return "upstream_failure"
	}
}

var ErrInsufficientCandidates = errors.New("insufficient candidates")

// Error is the tagged failure returned by Generate. Msg is safe to show to
// callers only for KindInsufficientCandidates.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

func insufficient(ext string, found int) *Error {
	return &Error{
		Kind: KindInsufficientCandidates,
		Msg:  fmt.Sprintf("Not enough %s files in bucket: found %d, need %d.", ext, found, RoundSize),
		Err:  ErrInsufficientCandidates,
	}
}

// PublicMessage is the error text to put in a response body for err.
func PublicMessage(err error) string {
	var qe *Error
	if errors.As(err, &qe) && qe.Kind == KindInsufficientCandidates {
		return qe.Msg
	}
	return GenericMessage
}
