package bridge

import "context"

// HealthCheck sends a signed ping to the health endpoint and records the
// resulting status. Pings do not consume nonces from the replay set.
//
// A fast 2xx is active. A slow 2xx or any other HTTP answer is degraded.
// No answer at all is offline.
func (c *Client) HealthCheck(ctx context.Context) BridgeStatus {
	url := c.cfg.HealthEndpoint
	if url == "" {
		url = c.cfg.Endpoint
	}
	tx := Transmission{
		TransmissionID: c.ids.Generate(),
		Nonce:          c.ids.Generate(),
		Payload:        map[string]any{"type": "ping"},
		Timestamp:      c.clock.Now(),
	}
	status := c.ping(ctx, url, tx)
	c.setStatus(status)
	return status
}

func (c *Client) ping(ctx context.Context, url string, tx Transmission) BridgeStatus {
	msg, err := SigningMessage(tx.TransmissionID, tx.Nonce, tx.Timestamp, tx.Payload)
	if err != nil {
		return StatusOffline
	}
	if tx.Signature, err = c.signer.Sign(msg); err != nil {
		return StatusOffline
	}
	body, err := encodeBody(tx)
	if err != nil {
		return StatusOffline
	}

	start := c.clock.Now()
	code, _, _, err := c.post(ctx, url, tx, body)
	elapsed := c.clock.Now().Sub(start)
	if err != nil {
		c.logger.Debug("bridge ping failed", "url", url, "error", err)
		return StatusOffline
	}
	if code >= 200 && code < 300 {
		if c.cfg.DegradedLatency > 0 && elapsed > c.cfg.DegradedLatency {
			return StatusDegraded
		}
		return StatusActive
	}
	c.logger.Debug("bridge ping answered", "url", url, "status", code)
	return StatusDegraded
}
