package types

// ProviderProfile captures where a provider works and what they can do.
// Matching compares country/state/lga by exact string equality.
type ProviderProfile struct {
	Country          string   `json:"country"`
	State            string   `json:"state"`
	LGA              string   `json:"lga"`
	Skills           []string `json:"skills"`
	Available        bool     `json:"available"`
	AvailabilityNote string   `json:"availabilityNote,omitempty"`
}

// IsComplete reports whether the profile carries everything the
// marketplace query requires.
func (p *ProviderProfile) IsComplete() bool {
	if p == nil {
		return false
	}
	return p.Country != "" && p.State != "" && p.LGA != "" && len(p.Skills) > 0
}

// HasSkill reports whether the provider lists the given service key.
func (p *ProviderProfile) HasSkill(serviceKey string) bool {
	if p == nil {
		return false
	}
	for _, skill := range p.Skills {
		if skill == serviceKey {
			return true
		}
	}
	return false
}
