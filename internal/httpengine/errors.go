package httpengine

import "fmt"

// Kind enumerates the engine's failure taxonomy. Every failure kind
// produces a well-formed Response/Time pair with empty/default fields and
// an Error string — the engine never returns an error through the VM.
type Kind int

const (
	InvalidURLHost Kind = iota
	HostNotFound
	ConnectFailed
	ConnectTimeout
	NoConnectionAvailable
	TLSHandshakeFailed
	ReadFailed
	WriteFailed
)

// Error is the engine's single error type; Inner carries the wrapped
// cause when one exists (connect/read/write failures), nil otherwise.
type Error struct {
	Kind  Kind
	Inner error
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidURLHost:
		return "invalid url host"
	case HostNotFound:
		return "host not found"
	case ConnectFailed:
		return fmt.Sprintf("connect failed: %v", e.Inner)
	case ConnectTimeout:
		return "connect timeout"
	case NoConnectionAvailable:
		return "no connection available"
	case TLSHandshakeFailed:
		return fmt.Sprintf("tls handshake failed: %v", e.Inner)
	case ReadFailed:
		return fmt.Sprintf("read failed: %v", e.Inner)
	case WriteFailed:
		return fmt.Sprintf("write failed: %v", e.Inner)
	default:
		return "unknown http engine error"
	}
}

func (e *Error) Unwrap() error { return e.Inner }
