package arduino

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	// ErrValidation reports a value outside its accepted range. Nothing was sent.
	ErrValidation = errors.New("validation error")
	// ErrConnection reports that a session could not be established.
	ErrConnection = errors.New("connection error")
	// ErrProtocol reports a missing, malformed or unparsable response, or a timeout.
	ErrProtocol = errors.New("protocol error")
)

// Error describes a failed instrument operation.
type Error struct {
	Kind    error    // One of ErrValidation, ErrConnection, ErrProtocol
	Op      string   // Operation name, e.g. "set output"
	Channel *Channel // Channel involved, if any
	Value   *int     // Attempted value, if any
	Command string   // Command sent or about to be sent, without terminator
	Err     error    // Underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Channel != nil {
		fmt.Fprintf(&b, " ch%d", *e.Channel)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " value=%d", *e.Value)
	}
	if e.Command != "" {
		fmt.Fprintf(&b, " (%q)", e.Command)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, ch *Channel, value *int, cmd string, err error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Channel: ch,
		Value:   value,
		Command: cmd,
		Err:     err,
	}
}

func chanRef(ch Channel) *Channel { return &ch }

func intRef(v int) *int { return &v }
