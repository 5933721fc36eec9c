package rpc

import (
	"context"
	"encoding/json"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/pkg/errors"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/failure"
)

// RPCGateway talks to the node's JSON-RPC endpoint directly over HTTP POST.
type RPCGateway struct {
	client *rpcclient.Client
	host   string
}

// NewRPCGateway builds a gateway for host ("127.0.0.1:8332"). No request is
// made until the first Call, so an unreachable node shows up as a failed
// pass rather than a startup error.
func NewRPCGateway(host, user, pass string) (*RPCGateway, error) {
	cfg := &rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	client, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, failure.New(failure.ErrStartup, "connect rpc", errors.Wrap(err, host))
	}
	return &RPCGateway{client: client, host: host}, nil
}

// Call JSON-encodes params and issues the request. rpcclient has no context
// support; the call always runs to completion. In HTTP POST mode rpcclient
// retries a failed transport with a linear backoff before giving up, about
// 22s for a dead node.
func (g *RPCGateway) Call(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	encoded := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: encode param %v", method, p)
		}
		encoded = append(encoded, b)
	}

	log.Tracef("rpc %s %s %v", g.host, method, params)
	res, err := g.client.RawRequest(method, encoded)
	if err != nil {
		return nil, errors.Wrap(err, method)
	}
	if len(res) == 0 || string(res) == "null" {
		return nil, nil
	}
	return res, nil
}

// Shutdown releases the underlying client.
func (g *RPCGateway) Shutdown() {
	g.client.Shutdown()
}
