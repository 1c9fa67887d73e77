package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/snmp_health/snmp/decoder"
)

// Client performs single-OID GET requests over pooled sessions.
// It is safe for concurrent use.
type Client struct {
	pool   *SessionPool
	logger *slog.Logger
}

// New builds a Client on top of pool.
func New(pool *SessionPool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Client{pool: pool, logger: logger}
}

// Get requests one scalar OID from t. Waiting for a free session slot is
// bounded only by ctx; the exchange itself, retries included, is bounded by
// t.Budget() from the moment a session is in hand. Every failure is a
// *RequestError.
func (c *Client) Get(ctx context.Context, t Target, oid string) (decoder.Value, error) {
	fail := func(kind Kind, err error) (decoder.Value, error) {
		return decoder.Value{}, &RequestError{Kind: kind, Target: t.String(), OID: oid, Err: err}
	}

	lease, err := c.pool.Acquire(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return fail(KindAborted, err)
		}
		kind := classify(err)
		if kind == KindProtocol {
			kind = KindUnreachable
		}
		return fail(kind, err)
	}

	rctx, cancel := context.WithTimeout(ctx, t.Budget())
	defer cancel()

	conn := lease.Session
	conn.Context = rctx
	pkt, err := conn.Get([]string{oid})
	conn.Context = context.Background()
	if err != nil {
		lease.Discard()
		c.logger.Debug("client: get failed", "target", t.String(), "oid", oid, "error", err.Error())
		return fail(classify(err), err)
	}
	lease.Release()

	if pkt.Error != gosnmp.NoError {
		return fail(KindProtocol, fmt.Errorf("agent returned %s (index %d)", pkt.Error, pkt.ErrorIndex))
	}
	if len(pkt.Variables) == 0 {
		return fail(KindProtocol, errors.New("empty response"))
	}
	v, err := decoder.Decode(pkt.Variables[0])
	if err != nil {
		return fail(KindProtocol, err)
	}
	return v, nil
}
