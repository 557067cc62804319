package bridge

import (
	"errors"
	"fmt"
)

// Kind classifies a failed transmission.
type Kind string

const (
	// KindDuplicateNonce means the nonce was already registered. Nothing
	// was sent.
	KindDuplicateNonce Kind = "DUPLICATE_NONCE"

	// KindTransport means every attempt failed without a definitive answer.
	KindTransport Kind = "TRANSPORT_ERROR"

	// KindNackReceived means the consumer received the transmission and
	// rejected it.
	KindNackReceived Kind = "NACK_RECEIVED"

	// KindAckTimeout means no acknowledgement arrived within the ACK
	// timeout. The transmission is indeterminate.
	KindAckTimeout Kind = "ACK_TIMEOUT"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrDuplicateNonce = errors.New("duplicate nonce")
	ErrTransport      = errors.New("transport error")
	ErrNackReceived   = errors.New("nack received")
	ErrAckTimeout     = errors.New("ack timeout")
)

var kindSentinels = map[Kind]error{
	KindDuplicateNonce: ErrDuplicateNonce,
	KindTransport:      ErrTransport,
	KindNackReceived:   ErrNackReceived,
	KindAckTimeout:     ErrAckTimeout,
}

// Error is returned by every failed send.
type Error struct {
	Kind           Kind
	TransmissionID string
	Nonce          string

	// Attempts is the number of HTTP attempts made.
	Attempts int

	// StatusCode is the last HTTP status seen, 0 if none.
	StatusCode int

	// Reason is the consumer's explanation for a NACK.
	Reason string

	// Err is the last underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: transmission=%s nonce=%s attempts=%d", e.Kind, e.TransmissionID, e.Nonce, e.Attempts)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Reason != "" {
		msg += " reason=" + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of a bridge error, or "" for other errors.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsDuplicateNonce reports whether err is a replayed nonce.
func IsDuplicateNonce(err error) bool { return KindOf(err) == KindDuplicateNonce }

// IsTransport reports whether err is an exhausted transport failure.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsNack reports whether the consumer explicitly rejected the transmission.
func IsNack(err error) bool { return KindOf(err) == KindNackReceived }

// IsAckTimeout reports whether the acknowledgement wait expired.
func IsAckTimeout(err error) bool { return KindOf(err) == KindAckTimeout }
