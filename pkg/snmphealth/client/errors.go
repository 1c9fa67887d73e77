package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindTimeout means no usable reply arrived within the retry budget.
	KindTimeout Kind = iota + 1
	// KindUnreachable means the target could not be addressed at all.
	KindUnreachable
	// KindProtocol means the agent replied, but not with a usable value.
	KindProtocol
	// KindAborted means the caller gave up before a request was sent.
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindProtocol:
		return "protocol error"
	case KindAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels matched by errors.Is against a *RequestError.
var (
	ErrTimeout     = errors.New("timeout")
	ErrUnreachable = errors.New("unreachable")
	ErrProtocol    = errors.New("protocol error")
	ErrAborted     = errors.New("aborted")
)

// RequestError is returned for every failed Get.
type RequestError struct {
	Kind   Kind
	Target string
	OID    string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Target, e.OID, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTimeout) and friends match on Kind.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrProtocol:
		return e.Kind == KindProtocol
	case ErrAborted:
		return e.Kind == KindAborted
	}
	return false
}

// KindOf returns the classification of err, or 0 if err is not a
// *RequestError.
func KindOf(err error) Kind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// classify maps a transport-level error from gosnmp onto a Kind.
func classify(err error) Kind {
	var (
		netErr net.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.As(err, &dnsErr):
		return KindUnreachable
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, ErrPoolClosed):
		return KindUnreachable
	case strings.Contains(err.Error(), "timeout"):
		// gosnmp reports an exhausted retry budget as a plain string.
		return KindTimeout
	case errors.As(err, &opErr):
		return KindUnreachable
	default:
		return KindProtocol
	}
}
