package rpc

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/failure"
)

const (
	methodGetPeerInfo    = "getpeerinfo"
	methodDisconnectNode = "disconnectnode"
	methodSetBan         = "setban"
	setBanAdd            = "add"
)

// NodeClient exposes the three node procedures goPeerScythe relies on.
type NodeClient struct {
	gw Gateway
}

// NewNodeClient wraps gw.
func NewNodeClient(gw Gateway) *NodeClient {
	return &NodeClient{gw: gw}
}

// GetPeerInfo returns the raw getpeerinfo result. Errors are failure.ErrFetch.
func (n *NodeClient) GetPeerInfo(ctx context.Context) (json.RawMessage, error) {
	res, err := n.gw.Call(ctx, methodGetPeerInfo)
	if err != nil {
		return nil, failure.New(failure.ErrFetch, methodGetPeerInfo, err)
	}
	return res, nil
}

// DisconnectNode drops the connection with the given host:port address.
func (n *NodeClient) DisconnectNode(ctx context.Context, addr string) error {
	if _, err := n.gw.Call(ctx, methodDisconnectNode, addr); err != nil {
		return failure.New(failure.ErrAction, methodDisconnectNode, errors.Wrap(err, addr))
	}
	return nil
}

// SetBan bans host for d counted from now. The duration is sent as whole
// seconds, so a later ban of the same host refreshes the expiry.
func (n *NodeClient) SetBan(ctx context.Context, host string, d time.Duration) error {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return failure.New(failure.ErrAction, methodSetBan,
			errors.Errorf("%s: ban duration %s is shorter than one second", host, d))
	}
	if _, err := n.gw.Call(ctx, methodSetBan, host, setBanAdd, seconds); err != nil {
		return failure.New(failure.ErrAction, methodSetBan,
			errors.Wrapf(err, "%s for %ss", host, strconv.FormatInt(seconds, 10)))
	}
	return nil
}
