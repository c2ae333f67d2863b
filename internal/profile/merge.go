package profile

// Update is a partial profile: every section is optional. Present sections
// replace their counterpart wholesale on merge.
type Update struct {
	Identity        *Identity        `json:"identity,omitempty"`
	BusinessContext *BusinessContext `json:"business_context,omitempty"`
	KPIs            *[]KPI           `json:"kpis,omitempty"`
	Channels        *[]Channel       `json:"channels,omitempty"`
	Skills          *Skills          `json:"skills,omitempty"`
	Process         *Process         `json:"process,omitempty"`
	Scope           *Scope           `json:"scope,omitempty"`
	Guardrails      *Guardrails      `json:"guardrails,omitempty"`
}

// MergeProfiles combines a stored profile with a partial update using
// field-group replacement: each section present in the update replaces the
// existing section wholesale, absent sections carry over unchanged.
//
// This is a deliberate simplifying invariant, not a limitation to fix.
// Callers adding one item to a list must read the list, append, and pass the
// full list back. Appending inside the merge would silently duplicate items
// across repeated merges.
func MergeProfiles(existing BusinessProfile, update Update) BusinessProfile {
	out := existing

	if update.Identity != nil {
		out.Identity = *update.Identity
	}
	if update.BusinessContext != nil {
		out.BusinessContext = *update.BusinessContext
	}
	if update.KPIs != nil {
		out.KPIs = *update.KPIs
	}
	if update.Channels != nil {
		out.Channels = *update.Channels
	}
	if update.Skills != nil {
		out.Skills = *update.Skills
	}
	if update.Process != nil {
		out.Process = *update.Process
	}
	if update.Scope != nil {
		out.Scope = *update.Scope
	}
	if update.Guardrails != nil {
		out.Guardrails = *update.Guardrails
	}

	return Normalize(out)
}
