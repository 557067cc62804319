package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roach88/karmatracker/internal/clock"
)

// BridgeStatus is the tri-state health consumed for circuit breaking.
type BridgeStatus string

const (
	StatusActive   BridgeStatus = "active"
	StatusDegraded BridgeStatus = "degraded"
	StatusOffline  BridgeStatus = "offline"
)

// Client sends signed transmissions.
//
// Thread-safety: Client is safe for concurrent use. At most
// Config.MaxConcurrent sends are in flight; others wait for a slot.
type Client struct {
	cfg    Config
	signer Signer
	nonces *NonceStore
	http   *http.Client
	clock  clock.Clock
	ids    clock.IDGenerator
	logger *slog.Logger
	slots  chan struct{}

	mu      sync.Mutex
	status  BridgeStatus
	waiters map[string]chan Ack
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Per-attempt timeouts are applied
// through the request context either way.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithNonceStore shares a nonce set between clients.
func WithNonceStore(s *NonceStore) Option {
	return func(c *Client) { c.nonces = s }
}

// WithSigner overrides the signer built from the config.
func WithSigner(s Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithClock sets the timestamp source.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithIDGenerator sets the nonce and transmission id source. Defaults to
// random UUIDs.
func WithIDGenerator(g clock.IDGenerator) Option {
	return func(c *Client) { c.ids = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient validates cfg and creates a client. Every send trims the nonce
// set back to NonceCleanupSize once it grows past it; long-running callers
// may also run StartCleanup to trim on CleanupInterval.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bridge config: %w", err)
	}
	c := &Client{
		cfg:     cfg,
		nonces:  NewNonceStore(),
		http:    &http.Client{},
		clock:   clock.System{},
		ids:     clock.RandomGenerator{},
		logger:  slog.Default(),
		status:  StatusActive,
		waiters: make(map[string]chan Ack),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.signer == nil {
		s, err := NewSigner(cfg)
		if err != nil {
			return nil, fmt.Errorf("bridge signer: %w", err)
		}
		c.signer = s
	}
	n := cfg.MaxConcurrent
	if n < 1 {
		n = 1
	}
	c.slots = make(chan struct{}, n)
	return c, nil
}

// Nonces exposes the client's nonce set.
func (c *Client) Nonces() *NonceStore {
	return c.nonces
}

// Signer returns the signer used for outgoing requests.
func (c *Client) Signer() Signer {
	return c.signer
}

// Status returns the last observed bridge status.
func (c *Client) Status() BridgeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(s BridgeStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != s {
		c.logger.Info("bridge status changed", "from", string(c.status), "to", string(s))
	}
	c.status = s
}

// StartCleanup trims the nonce set to NonceCleanupSize every
// CleanupInterval until ctx is done.
func (c *Client) StartCleanup(ctx context.Context) <-chan struct{} {
	interval := c.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return c.nonces.StartCleanup(ctx, interval, c.cfg.NonceCleanupSize)
}

// Send transmits payload under a fresh nonce.
func (c *Client) Send(ctx context.Context, payload any) (Transmission, error) {
	return c.SendWithNonce(ctx, c.ids.Generate(), payload)
}

// SendWithNonce transmits payload under the given nonce. A nonce that was
// already used fails with KindDuplicateNonce before anything is sent.
func (c *Client) SendWithNonce(ctx context.Context, nonce string, payload any) (Transmission, error) {
	tx := Transmission{
		TransmissionID: c.ids.Generate(),
		Nonce:          nonce,
		Payload:        payload,
		Timestamp:      c.clock.Now(),
	}
	msg, err := SigningMessage(tx.TransmissionID, tx.Nonce, tx.Timestamp, tx.Payload)
	if err != nil {
		return tx, err
	}
	if tx.Signature, err = c.signer.Sign(msg); err != nil {
		return tx, fmt.Errorf("sign transmission: %w", err)
	}
	body, err := encodeBody(tx)
	if err != nil {
		return tx, fmt.Errorf("encode transmission: %w", err)
	}

	if !c.nonces.Register(nonce) {
		return tx, &Error{Kind: KindDuplicateNonce, TransmissionID: tx.TransmissionID, Nonce: nonce}
	}
	if keep := c.cfg.NonceCleanupSize; c.nonces.Len() > keep {
		c.nonces.Cleanup(keep)
	}

	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		c.nonces.Release(nonce)
		return tx, &Error{Kind: KindTransport, TransmissionID: tx.TransmissionID, Nonce: nonce, Err: ctx.Err()}
	}
	defer func() { <-c.slots }()

	var acks chan Ack
	if c.cfg.AwaitAck {
		acks = c.await(tx.TransmissionID)
		defer c.forget(tx.TransmissionID)
	}

	resp, err := c.deliver(ctx, &tx, body)
	if err != nil {
		return tx, err
	}

	if resp != nil {
		if !resp.OK {
			return tx, &Error{Kind: KindNackReceived, TransmissionID: tx.TransmissionID, Nonce: nonce, Attempts: tx.Attempts, StatusCode: tx.StatusCode, Reason: resp.Reason}
		}
		tx.Acknowledged = true
		return tx, nil
	}
	if !c.cfg.AwaitAck {
		return tx, nil
	}

	timer := time.NewTimer(c.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case ack := <-acks:
		if !ack.OK {
			return tx, &Error{Kind: KindNackReceived, TransmissionID: tx.TransmissionID, Nonce: nonce, Attempts: tx.Attempts, StatusCode: tx.StatusCode, Reason: ack.Reason}
		}
		tx.Acknowledged = true
		return tx, nil
	case <-timer.C:
		return tx, &Error{Kind: KindAckTimeout, TransmissionID: tx.TransmissionID, Nonce: nonce, Attempts: tx.Attempts, StatusCode: tx.StatusCode}
	case <-ctx.Done():
		return tx, &Error{Kind: KindAckTimeout, TransmissionID: tx.TransmissionID, Nonce: nonce, Attempts: tx.Attempts, StatusCode: tx.StatusCode, Err: ctx.Err()}
	}
}

// deliver runs the attempt loop. It returns the synchronous ACK carried in
// a 2xx body, if any. The nonce is released only when no attempt can have
// reached the consumer.
func (c *Client) deliver(ctx context.Context, tx *Transmission, body []byte) (*Ack, error) {
	var (
		lastErr   error
		reached   bool
		retryWait time.Duration
	)
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, backoff(c.cfg, attempt-1, retryWait)); err != nil {
				lastErr = err
				break
			}
		}
		tx.Attempts = attempt
		retryWait = 0

		status, respBody, header, err := c.post(ctx, c.cfg.Endpoint, *tx, body)
		if err != nil {
			lastErr = err
			if ambiguous(err) {
				reached = true
			}
			c.logger.Debug("bridge attempt failed", "nonce", tx.Nonce, "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		reached = true
		tx.StatusCode = status
		switch {
		case status >= 200 && status < 300:
			c.setStatus(StatusActive)
			return decodeAck(respBody, tx.TransmissionID), nil
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = fmt.Errorf("consumer returned %d", status)
			retryWait = retryAfter(header)
			c.logger.Debug("bridge attempt retryable", "nonce", tx.Nonce, "attempt", attempt, "status", status)
		default:
			reason := strings.TrimSpace(string(respBody))
			if ack := decodeAck(respBody, tx.TransmissionID); ack != nil && ack.Reason != "" {
				reason = ack.Reason
			}
			c.setStatus(StatusActive)
			return nil, &Error{Kind: KindNackReceived, TransmissionID: tx.TransmissionID, Nonce: tx.Nonce, Attempts: attempt, StatusCode: status, Reason: reason}
		}
	}

	if reached {
		c.setStatus(StatusDegraded)
	} else {
		c.nonces.Release(tx.Nonce)
		c.setStatus(StatusOffline)
	}
	c.logger.Warn("bridge send failed", "nonce", tx.Nonce, "attempts", tx.Attempts, "nonce_kept", reached, "error", lastErr)
	return nil, &Error{Kind: KindTransport, TransmissionID: tx.TransmissionID, Nonce: tx.Nonce, Attempts: tx.Attempts, StatusCode: tx.StatusCode, Err: lastErr}
}

func (c *Client) post(ctx context.Context, url string, tx Transmission, body []byte) (int, []byte, http.Header, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, err
	}
	setHeaders(req, tx, c.signer.Algorithm())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		// The status line arrived, so the consumer saw the request.
		return resp.StatusCode, nil, resp.Header, nil
	}
	return resp.StatusCode, respBody, resp.Header, nil
}

// ambiguous reports whether a failed attempt may have reached the consumer.
// Only failures to establish a connection are definitive.
func ambiguous(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	return true
}

func decodeAck(body []byte, transmissionID string) *Ack {
	var raw struct {
		TransmissionID string `json:"transmission_id"`
		Ack            *bool  `json:"ack"`
		Reason         string `json:"reason"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &raw) != nil || raw.Ack == nil {
		return nil
	}
	if raw.TransmissionID != "" && raw.TransmissionID != transmissionID {
		return nil
	}
	return &Ack{TransmissionID: transmissionID, OK: *raw.Ack, Reason: raw.Reason}
}

func (c *Client) await(transmissionID string) chan Ack {
	ch := make(chan Ack, 1)
	c.mu.Lock()
	c.waiters[transmissionID] = ch
	c.mu.Unlock()
	return ch
}

func (c *Client) forget(transmissionID string) {
	c.mu.Lock()
	delete(c.waiters, transmissionID)
	c.mu.Unlock()
}

// Acknowledge delivers an asynchronous ACK to the send waiting on
// ack.TransmissionID. It reports whether a send was waiting.
func (c *Client) Acknowledge(ack Ack) bool {
	c.mu.Lock()
	ch, ok := c.waiters[ack.TransmissionID]
	if ok {
		delete(c.waiters, ack.TransmissionID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- ack
	return true
}

func backoff(cfg Config, attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, cfg.MaxDelay)
	}
	d := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
