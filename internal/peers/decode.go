package peers

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/failure"
)

// rawPeer is the subset of a getpeerinfo entry we care about. Services is
// kept raw because older or patched nodes do not always send an array.
type rawPeer struct {
	Addr           string          `json:"addr"`
	ConnectionType string          `json:"connection_type"`
	Services       json.RawMessage `json:"servicesnames"`
}

// Decode parses the raw result of getpeerinfo. An absent, null or empty result
// is an empty snapshot. Anything that is not an array of peer objects fails
// with a failure.ErrDecode error.
func Decode(raw json.RawMessage) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var entries []rawPeer
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, failure.New(failure.ErrDecode, "decode getpeerinfo",
			errors.Wrap(err, "unexpected peer list shape"))
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, NewRecord(e.Addr, e.ConnectionType, decodeServices(e.Services)...))
	}
	return records, nil
}

// decodeServices accepts an array of names or a single string. Any other
// shape, including an absent field, yields no services.
func decodeServices(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		names := make([]string, 0, len(list))
		for _, item := range list {
			var name *string
			if json.Unmarshal(item, &name) == nil && name != nil {
				names = append(names, *name)
			}
		}
		return names
	}

	var single *string
	if err := json.Unmarshal(raw, &single); err == nil && single != nil {
		return []string{*single}
	}
	return nil
}
