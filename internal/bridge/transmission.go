package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roach88/karmatracker/internal/canon"
)

// Request headers.
const (
	HeaderSignature      = "X-STP-Signature"
	HeaderNonce          = "X-STP-Nonce"
	HeaderTimestamp      = "X-STP-Timestamp"
	HeaderTransmissionID = "X-STP-Transmission-Id"
	HeaderAlgorithm      = "X-STP-Algorithm"
)

// Transmission is one signed message and its delivery outcome.
type Transmission struct {
	TransmissionID string    `json:"transmission_id"`
	Nonce          string    `json:"nonce"`
	Signature      string    `json:"signature"`
	Payload        any       `json:"payload"`
	Timestamp      time.Time `json:"timestamp"`

	Attempts     int  `json:"attempts,omitempty"`
	StatusCode   int  `json:"status_code,omitempty"`
	Acknowledged bool `json:"acknowledged,omitempty"`
}

// Ack is a consumer's verdict on a transmission. It arrives either as the
// body of the POST response or later through Client.Acknowledge.
type Ack struct {
	TransmissionID string `json:"transmission_id"`
	OK             bool   `json:"ack"`
	Reason         string `json:"reason,omitempty"`
}

// SigningMessage returns the canonical bytes that are signed.
func SigningMessage(transmissionID, nonce string, ts time.Time, payload any) ([]byte, error) {
	msg, err := canon.Marshal(map[string]any{
		"transmission_id": transmissionID,
		"nonce":           nonce,
		"timestamp":       formatTime(ts),
		"payload":         payload,
	})
	if err != nil {
		return nil, fmt.Errorf("canonical signing message: %w", err)
	}
	return msg, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type wireBody struct {
	TransmissionID string          `json:"transmission_id"`
	Nonce          string          `json:"nonce"`
	Timestamp      string          `json:"timestamp"`
	Signature      string          `json:"signature"`
	Payload        json.RawMessage `json:"payload"`
}

func encodeBody(tx Transmission) ([]byte, error) {
	payload, err := canon.Marshal(tx.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireBody{
		TransmissionID: tx.TransmissionID,
		Nonce:          tx.Nonce,
		Timestamp:      formatTime(tx.Timestamp),
		Signature:      tx.Signature,
		Payload:        payload,
	})
}

func setHeaders(req *http.Request, tx Transmission, algorithm string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, tx.Signature)
	req.Header.Set(HeaderNonce, tx.Nonce)
	req.Header.Set(HeaderTimestamp, formatTime(tx.Timestamp))
	req.Header.Set(HeaderTransmissionID, tx.TransmissionID)
	req.Header.Set(HeaderAlgorithm, algorithm)
}

// ErrBadSignature reports a request whose signature does not verify.
var ErrBadSignature = errors.New("bad signature")

// ParseRequest reads and verifies a bridge request on the consumer side.
// The headers must agree with the body and the signature must verify
// against v.
func ParseRequest(r *http.Request, v Signer) (Transmission, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return Transmission{}, fmt.Errorf("read body: %w", err)
	}
	var body wireBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Transmission{}, fmt.Errorf("decode body: %w", err)
	}
	if r.Header.Get(HeaderNonce) != body.Nonce ||
		r.Header.Get(HeaderTransmissionID) != body.TransmissionID ||
		r.Header.Get(HeaderTimestamp) != body.Timestamp ||
		r.Header.Get(HeaderSignature) != body.Signature {
		return Transmission{}, fmt.Errorf("%w: headers do not match body", ErrBadSignature)
	}
	ts, err := time.Parse(time.RFC3339Nano, body.Timestamp)
	if err != nil {
		return Transmission{}, fmt.Errorf("parse timestamp: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body.Payload))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return Transmission{}, fmt.Errorf("decode payload: %w", err)
	}

	msg, err := SigningMessage(body.TransmissionID, body.Nonce, ts, payload)
	if err != nil {
		return Transmission{}, err
	}
	if !v.Verify(msg, body.Signature) {
		return Transmission{}, ErrBadSignature
	}
	return Transmission{
		TransmissionID: body.TransmissionID,
		Nonce:          body.Nonce,
		Signature:      body.Signature,
		Payload:        payload,
		Timestamp:      ts,
	}, nil
}
