// Package rpc executes named remote procedures against a Bitcoin node, either
// by spawning bitcoin-cli or by talking JSON-RPC over HTTP.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/failure"
)

// Gateway runs a named remote procedure and returns its raw JSON result. A
// procedure that prints nothing yields a nil result.
type Gateway interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// CLIGateway runs procedures through a bitcoin-cli compatible executable:
// <path> <extra args...> <method> <params...>
type CLIGateway struct {
	path      string
	extraArgs []string
}

// NewCLIGateway resolves locator on PATH and splits extraArgs with shell-like
// quoting (whitespace separates words, quotes group, backslash escapes).
// Failures are returned as failure.ErrStartup.
func NewCLIGateway(locator, extraArgs string) (*CLIGateway, error) {
	path, err := exec.LookPath(locator)
	if err != nil {
		return nil, failure.New(failure.ErrStartup, "locate gateway",
			errors.Wrapf(err, "%q not found or not executable", locator))
	}

	args, err := SplitArgs(extraArgs)
	if err != nil {
		return nil, failure.New(failure.ErrStartup, "parse gateway arguments", err)
	}

	return &CLIGateway{path: path, extraArgs: args}, nil
}

// SplitArgs splits an argument string the way a POSIX shell would split
// words, without any expansion.
func SplitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	args, err := shlex.Split(s)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot split %q", s)
	}
	return args, nil
}

// Path returns the resolved executable path.
func (g *CLIGateway) Path() string {
	return g.path
}

// Call runs the executable and waits for it. The child process is not tied
// to ctx cancellation: a call already started always runs to completion.
func (g *CLIGateway) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	args := make([]string, 0, len(g.extraArgs)+1+len(params))
	args = append(args, g.extraArgs...)
	args = append(args, method)
	for _, p := range params {
		args = append(args, fmt.Sprint(p))
	}

	cmd := exec.CommandContext(context.WithoutCancel(ctx), g.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Tracef("exec %s %s", g.path, strings.Join(args, " "))
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, errors.Wrapf(err, "%s: %s", method, msg)
		}
		return nil, errors.Wrap(err, method)
	}

	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	return json.RawMessage(out), nil
}
