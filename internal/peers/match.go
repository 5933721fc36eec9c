package peers

const (
	// TargetConnectionType is the connection classification a target must carry.
	TargetConnectionType = "libre"

	// TargetService is the service name a target must advertise.
	TargetService = "PREFERENTIAL_PEERING"
)

// IsTarget reports whether r must be disconnected and banned. Both signals
// are required; exact, case-sensitive comparison only.
func IsTarget(r Record) bool {
	return r.ConnectionType == TargetConnectionType && r.HasService(TargetService)
}

// Targets returns the records matching IsTarget in snapshot order.
func Targets(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if IsTarget(r) {
			out = append(out, r)
		}
	}
	return out
}
