// Package profile defines the canonical business profile a digital employee
// is configured from, and the pure mapping/merge functions that build it from
// approved extracted items. Nothing here does I/O; document generation and
// dashboard code import this package directly, so it stays dependency-free.
package profile

// Stakeholder is one named person in the client organisation.
type Stakeholder struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Identity holds who the digital employee works for and with.
type Identity struct {
	Stakeholders []Stakeholder `json:"stakeholders"`
}

// BusinessContext captures the problem being solved and its operating shape.
type BusinessContext struct {
	ProblemStatement string   `json:"problem_statement,omitempty"`
	PainPoints       []string `json:"pain_points"`
	PeakPeriods      []string `json:"peak_periods"`
	MonthlyVolume    string   `json:"monthly_volume,omitempty"`
	CostPerCase      string   `json:"cost_per_case,omitempty"`
}

// KPI is one measurable target the engagement is judged against.
type KPI struct {
	Name   string `json:"name"`
	Target string `json:"target,omitempty"`
}

// Channel is one communication channel the digital employee operates on.
// SLA, volume and rules typically arrive in later items that patch the
// channel after it was first named.
type Channel struct {
	Name   string   `json:"name"`
	SLA    string   `json:"sla,omitempty"`
	Volume string   `json:"volume,omitempty"`
	Rules  []string `json:"rules"`
}

// Skill is one capability, optionally with the knowledge sources backing it.
type Skill struct {
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	KnowledgeSources []string `json:"knowledge_sources"`
}

// Skills groups capabilities with the expected communication style.
type Skills struct {
	Skills             []Skill `json:"skills"`
	CommunicationStyle string  `json:"communication_style,omitempty"`
}

// ProcessStep is one step of the happy path, ordered by an explicit Order
// field because sessions narrate steps out of chronological order.
type ProcessStep struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
}

// Exception is one deviation from the happy path and how to handle it.
type Exception struct {
	Scenario   string `json:"scenario"`
	Resolution string `json:"resolution,omitempty"`
}

// Process describes how cases flow through the digital employee.
type Process struct {
	HappyPathSteps  []ProcessStep `json:"happy_path_steps"`
	Exceptions      []Exception   `json:"exceptions"`
	EscalationRules []string      `json:"escalation_rules"`
	CaseTypes       []string      `json:"case_types"`
}

// Scope bounds what the digital employee does and explicitly does not do.
type Scope struct {
	InScope    []string `json:"in_scope"`
	OutOfScope []string `json:"out_of_scope"`
}

// FinancialLimit is one monetary boundary, e.g. a maximum refund.
type FinancialLimit struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount,omitempty"`
}

// Guardrails are the hard behavioural boundaries.
type Guardrails struct {
	Never             []string         `json:"never"`
	Always            []string         `json:"always"`
	FinancialLimits   []FinancialLimit `json:"financial_limits"`
	LegalRestrictions []string         `json:"legal_restrictions"`
}

// BusinessProfile is the canonical, fixed-shape aggregate built from approved
// extracted items. Every list field is always present and never nil, so
// callers never branch on missing-vs-empty.
type BusinessProfile struct {
	Identity        Identity        `json:"identity"`
	BusinessContext BusinessContext `json:"business_context"`
	KPIs            []KPI           `json:"kpis"`
	Channels        []Channel       `json:"channels"`
	Skills          Skills          `json:"skills"`
	Process         Process         `json:"process"`
	Scope           Scope           `json:"scope"`
	Guardrails      Guardrails      `json:"guardrails"`
}

// NewProfile returns an empty profile with every list initialised.
func NewProfile() BusinessProfile {
	return BusinessProfile{
		Identity: Identity{Stakeholders: []Stakeholder{}},
		BusinessContext: BusinessContext{
			PainPoints:  []string{},
			PeakPeriods: []string{},
		},
		KPIs:     []KPI{},
		Channels: []Channel{},
		Skills:   Skills{Skills: []Skill{}},
		Process: Process{
			HappyPathSteps:  []ProcessStep{},
			Exceptions:      []Exception{},
			EscalationRules: []string{},
			CaseTypes:       []string{},
		},
		Scope: Scope{
			InScope:    []string{},
			OutOfScope: []string{},
		},
		Guardrails: Guardrails{
			Never:             []string{},
			Always:            []string{},
			FinancialLimits:   []FinancialLimit{},
			LegalRestrictions: []string{},
		},
	}
}

// Normalize replaces any nil list with an empty one. Profiles decoded from
// JSON or merged from partial updates pass through here so the
// no-nil-lists invariant holds at every boundary.
func Normalize(p BusinessProfile) BusinessProfile {
	if p.Identity.Stakeholders == nil {
		p.Identity.Stakeholders = []Stakeholder{}
	}
	if p.BusinessContext.PainPoints == nil {
		p.BusinessContext.PainPoints = []string{}
	}
	if p.BusinessContext.PeakPeriods == nil {
		p.BusinessContext.PeakPeriods = []string{}
	}
	if p.KPIs == nil {
		p.KPIs = []KPI{}
	}
	if p.Channels == nil {
		p.Channels = []Channel{}
	}
	for i := range p.Channels {
		if p.Channels[i].Rules == nil {
			p.Channels[i].Rules = []string{}
		}
	}
	if p.Skills.Skills == nil {
		p.Skills.Skills = []Skill{}
	}
	for i := range p.Skills.Skills {
		if p.Skills.Skills[i].KnowledgeSources == nil {
			p.Skills.Skills[i].KnowledgeSources = []string{}
		}
	}
	if p.Process.HappyPathSteps == nil {
		p.Process.HappyPathSteps = []ProcessStep{}
	}
	if p.Process.Exceptions == nil {
		p.Process.Exceptions = []Exception{}
	}
	if p.Process.EscalationRules == nil {
		p.Process.EscalationRules = []string{}
	}
	if p.Process.CaseTypes == nil {
		p.Process.CaseTypes = []string{}
	}
	if p.Scope.InScope == nil {
		p.Scope.InScope = []string{}
	}
	if p.Scope.OutOfScope == nil {
		p.Scope.OutOfScope = []string{}
	}
	if p.Guardrails.Never == nil {
		p.Guardrails.Never = []string{}
	}
	if p.Guardrails.Always == nil {
		p.Guardrails.Always = []string{}
	}
	if p.Guardrails.FinancialLimits == nil {
		p.Guardrails.FinancialLimits = []FinancialLimit{}
	}
	if p.Guardrails.LegalRestrictions == nil {
		p.Guardrails.LegalRestrictions = []string{}
	}
	return p
}
