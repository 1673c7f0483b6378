package ledger

import (
	"errors"
	"fmt"

	"multiverse.land/internal/protocol"
)

// Error carries a protocol error code alongside a human-readable reason.
// Every failed operation surfaces exactly one of these; no operation
// leaves partial state behind.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Code + ": " + e.Msg }

func errf(code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf maps an error to its protocol code. Non-coded errors
// (infrastructure failures) collapse to E_INTERNAL.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return protocol.ErrInternal
}
