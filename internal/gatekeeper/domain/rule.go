package domain

// RuleFile is the per-group whitelist document held in the external rule
// store. SHA is the opaque content version; any write must present the SHA
// it read, and a stale SHA is rejected rather than merged.
type RuleFile struct {
	GroupID           string   `json:"group_id"`
	SHA               string   `json:"-"`
	Enabled           bool     `json:"enabled"`
	Whitelist         []string `json:"whitelist"`
	BlockedSubdomains []string `json:"blocked_subdomains,omitempty"`
	BlockedPaths      []string `json:"blocked_paths,omitempty"`
}

// ContainsDomain reports whether the whitelist already carries the
// (normalized) domain.
func (f RuleFile) ContainsDomain(domain string) bool {
	for _, d := range f.Whitelist {
		if d == domain {
			return true
		}
	}
	return false
}
