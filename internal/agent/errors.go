// internal/agent/errors.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Reason classifies a transport failure
type Reason string

const (
	ReasonRefused Reason = "refused"
	ReasonTimeout Reason = "timeout"
	ReasonUnknown Reason = "unknown"
	// ReasonClosed fails requests that were in flight when the channel closed
	ReasonClosed Reason = "closed"
)

// TransportError reports that the channel to the agent could not carry a message
type TransportError struct {
	Reason Reason
	Err    error
}

func (e *TransportError) Error() string {
	switch e.Reason {
	case ReasonRefused:
		return "agent connection refused"
	case ReasonTimeout:
		if e.Err != nil {
			return fmt.Sprintf("agent request timed out: %v", e.Err)
		}
		return "agent request timed out"
	case ReasonClosed:
		return "agent connection closed"
	}
	if e.Err != nil {
		return fmt.Sprintf("agent transport error: %v", e.Err)
	}
	return "agent transport error"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports that the agent answered a request with success=false
type ProtocolError struct {
	Op      string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// DeviceNotConnectedError is returned by SendData for a device outside the
// connected set. Nothing is sent to the agent.
type DeviceNotConnectedError struct {
	DeviceID string
}

func (e *DeviceNotConnectedError) Error() string {
	return fmt.Sprintf("device %s is not connected", e.DeviceID)
}

// IsReason reports whether err is a TransportError with the given reason
func IsReason(err error, reason Reason) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Reason == reason
}

func classifyDialError(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}
	return ReasonUnknown
}
