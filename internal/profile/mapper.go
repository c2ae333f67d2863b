package profile

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/atlas/internal/item"
)

// stepPrefixRe matches "3. " or "3) " numbering at the start of a step.
var stepPrefixRe = regexp.MustCompile(`^(\d+)[.)]\s+`)

// foldState threads the profile being built plus the narrow cross-item
// context the mapping needs: sessions often name a skill or channel first and
// refine it in the next breath, so handlers keep a cursor to the last
// appended one. Indices, not pointers, because appends reallocate.
type foldState struct {
	profile     *BusinessProfile
	lastSkill   int
	lastChannel int
}

// Handler folds one extracted item into the profile. Returning an error
// skips the item; it never aborts the fold.
type Handler func(st *foldState, it item.ExtractedItem) error

var handlers = map[item.Type]Handler{}

// RegisterHandler binds an item type to its mapping handler. New item kinds
// are a pure addition: register a handler, no edits to existing ones.
func RegisterHandler(t item.Type, h Handler) {
	handlers[t] = h
}

func init() {
	RegisterHandler(item.TypeStakeholder, mapStakeholder)
	RegisterHandler(item.TypeGoal, mapGoal)
	RegisterHandler(item.TypePainPoint, mapPainPoint)
	RegisterHandler(item.TypePeakPeriod, mapPeakPeriod)
	RegisterHandler(item.TypeMonthlyVolume, mapMonthlyVolume)
	RegisterHandler(item.TypeCostPerCase, mapCostPerCase)
	RegisterHandler(item.TypeKPITarget, mapKPITarget)
	RegisterHandler(item.TypeChannel, mapChannel)
	RegisterHandler(item.TypeChannelSLA, mapChannelSLA)
	RegisterHandler(item.TypeChannelVolume, mapChannelVolume)
	RegisterHandler(item.TypeChannelRule, mapChannelRule)
	RegisterHandler(item.TypeSkill, mapSkill)
	RegisterHandler(item.TypeSkillCore, mapSkill)
	RegisterHandler(item.TypeSkillFuture, mapSkill)
	RegisterHandler(item.TypeCommunication, mapCommunicationStyle)
	RegisterHandler(item.TypeKnowledgeSource, mapKnowledgeSource)
	RegisterHandler(item.TypeHappyPathStep, mapHappyPathStep)
	RegisterHandler(item.TypeExceptionCase, mapExceptionCase)
	RegisterHandler(item.TypeEscalationRule, mapEscalationRule)
	RegisterHandler(item.TypeCaseType, mapCaseType)
	RegisterHandler(item.TypeScopeIn, mapScopeIn)
	RegisterHandler(item.TypeScopeOut, mapScopeOut)
	RegisterHandler(item.TypeGuardrailNever, mapGuardrailNever)
	RegisterHandler(item.TypeGuardrailAlways, mapGuardrailAlways)
	RegisterHandler(item.TypeFinancialLimit, mapFinancialLimit)
	RegisterHandler(item.TypeLegalRestriction, mapLegalRestriction)
}

// Mapper projects extracted items onto a BusinessProfile.
type Mapper struct {
	logger *slog.Logger
}

func NewMapper(logger *slog.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// MapItemsToProfile folds items into a fresh profile one at a time. Unknown
// types are logged and skipped, forward compatibility with extraction kinds
// this deployment does not model yet. A per-item mapping failure is logged
// with the item id and type and skipped; one bad item never blanks the
// profile.
func (m *Mapper) MapItemsToProfile(items []item.ExtractedItem) BusinessProfile {
	p := NewProfile()
	st := &foldState{profile: &p, lastSkill: -1, lastChannel: -1}

	for _, it := range items {
		h, ok := handlers[it.Type]
		if !ok {
			m.logger.Warn("no handler for item type, skipping",
				"item_id", it.ID,
				"type", it.Type,
			)
			continue
		}
		if err := h(st, it); err != nil {
			m.logger.Warn("item mapping failed, skipping",
				"item_id", it.ID,
				"type", it.Type,
				"error", err,
			)
		}
	}

	return p
}

func mapStakeholder(st *foldState, it item.ExtractedItem) error {
	name := strField(it.StructuredData, "name")
	role := strField(it.StructuredData, "role", "title")
	if name == "" {
		name, role = splitLabel(it.Content)
	} else if role == "" {
		_, role = splitLabel(it.Content)
	}
	if name == "" {
		return fmt.Errorf("stakeholder without a name")
	}
	st.profile.Identity.Stakeholders = append(st.profile.Identity.Stakeholders, Stakeholder{
		Name: name,
		Role: role,
	})
	return nil
}

// mapGoal only sets the problem statement when empty: the first clearly
// stated goal is the canonical one, later goals never overwrite it.
func mapGoal(st *foldState, it item.ExtractedItem) error {
	if st.profile.BusinessContext.ProblemStatement != "" {
		return nil
	}
	goal := strField(it.StructuredData, "goal", "statement", "description")
	if goal == "" {
		goal = strings.TrimSpace(it.Content)
	}
	st.profile.BusinessContext.ProblemStatement = goal
	return nil
}

func mapPainPoint(st *foldState, it item.ExtractedItem) error {
	points := strList(it.StructuredData, "pain_points", "points")
	if points == nil {
		if p := strField(it.StructuredData, "description"); p != "" {
			points = []string{p}
		} else {
			points = splitBullets(it.Content)
		}
	}
	st.profile.BusinessContext.PainPoints = append(st.profile.BusinessContext.PainPoints, points...)
	return nil
}

func mapPeakPeriod(st *foldState, it item.ExtractedItem) error {
	periods := strList(it.StructuredData, "periods")
	if periods == nil {
		if p := strField(it.StructuredData, "period"); p != "" {
			periods = []string{p}
		} else {
			periods = splitBullets(it.Content)
		}
	}
	st.profile.BusinessContext.PeakPeriods = append(st.profile.BusinessContext.PeakPeriods, periods...)
	return nil
}

func mapMonthlyVolume(st *foldState, it item.ExtractedItem) error {
	v := strField(it.StructuredData, "volume", "monthly_volume", "value")
	if v == "" {
		v = strings.TrimSpace(it.Content)
	}
	st.profile.BusinessContext.MonthlyVolume = v
	return nil
}

func mapCostPerCase(st *foldState, it item.ExtractedItem) error {
	v := strField(it.StructuredData, "cost", "cost_per_case", "value")
	if v == "" {
		v = strings.TrimSpace(it.Content)
	}
	st.profile.BusinessContext.CostPerCase = v
	return nil
}

func mapKPITarget(st *foldState, it item.ExtractedItem) error {
	name := strField(it.StructuredData, "name", "kpi")
	target := strField(it.StructuredData, "target", "value")
	if name == "" {
		name, _ = splitLabel(it.Content)
	}
	if target == "" {
		if pct := extractPercent(it.Content); pct != "" {
			target = pct
		} else {
			_, target = splitLabel(it.Content)
		}
	}
	if name == "" {
		return fmt.Errorf("kpi without a name")
	}
	st.profile.KPIs = append(st.profile.KPIs, KPI{Name: name, Target: target})
	return nil
}

func mapChannel(st *foldState, it item.ExtractedItem) error {
	name := strField(it.StructuredData, "name", "channel")
	if name == "" {
		name, _ = splitLabel(it.Content)
	}
	if name == "" {
		return fmt.Errorf("channel without a name")
	}
	ch := Channel{Name: name, Rules: []string{}}
	ch.SLA = strField(it.StructuredData, "sla")
	ch.Volume = strField(it.StructuredData, "volume")
	st.profile.Channels = append(st.profile.Channels, ch)
	st.lastChannel = len(st.profile.Channels) - 1
	return nil
}

// findChannel locates a channel by case-insensitive name. The conversation
// typically names a channel and refines it later, so SLA/volume/rule items
// are patches, not entities of their own.
func (st *foldState) findChannel(name string) int {
	for i, ch := range st.profile.Channels {
		if strings.EqualFold(ch.Name, name) {
			return i
		}
	}
	return -1
}

func mapChannelSLA(st *foldState, it item.ExtractedItem) error {
	name := strField(it.StructuredData, "channel", "name")
	if name == "" {
		name, _ = splitLabel(it.Content)
	}
	idx := st.findChannel(name)
	if idx < 0 {
		return fmt.Errorf("no channel %q to patch with SLA", name)
	}
	sla := strField(it.StructuredData, "sla", "value")
	if sla == "" {
		_, sla = splitLabel(it.Content)
	}
	st.profile.Channels[idx].SLA = sla
	return nil
}

func mapChannelVolume(st *foldState, it item.ExtractedItem) error {
	name := strField(it.StructuredData, "channel", "name")
	if name == "" {
		name, _ = splitLabel(it.Content)
	}
	idx := st.findChannel(name)
	if idx < 0 {
		return fmt.Errorf("no channel %q to patch with volume", name)
	}
	vol := strField(it.StructuredData, "volume", "value")
	if vol == "" {
		_, vol = splitLabel(it.Content)
	}
	st.profile.Channels[idx].Volume = vol
	return nil
}

// mapChannelRule patches the named channel, or the most recently added one
// when no name matches, mirroring how a rule usually follows the channel it
// belongs to in conversation.
func mapChannelRule(st *foldState, it item.ExtractedItem) error {
	name := strField(it.StructuredData, "channel")
	idx := st.findChannel(name)
	if idx < 0 {
		idx = st.lastChannel
	}
	if idx < 0 {
		return fmt.Errorf("no channel to attach rule to")
	}
	rule := strField(it.StructuredData, "rule")
	if rule == "" {
		rule = strings.TrimSpace(it.Content)
	}
	st.profile.Channels[idx].Rules = append(st.profile.Channels[idx].Rules, rule)
	return nil
}

func mapSkill(st *foldState, it item.ExtractedItem) error {
	name := strField(it.StructuredData, "name", "skill")
	desc := strField(it.StructuredData, "description")
	if name == "" {
		name, desc = splitLabel(it.Content)
	}
	if name == "" {
		return fmt.Errorf("skill without a name")
	}
	st.profile.Skills.Skills = append(st.profile.Skills.Skills, Skill{
		Name:             name,
		Description:      desc,
		KnowledgeSources: []string{},
	})
	st.lastSkill = len(st.profile.Skills.Skills) - 1
	return nil
}

func mapCommunicationStyle(st *foldState, it item.ExtractedItem) error {
	style := strField(it.StructuredData, "style", "communication_style")
	if style == "" {
		style = strings.TrimSpace(it.Content)
	}
	st.profile.Skills.CommunicationStyle = style
	return nil
}

// mapKnowledgeSource patches the most recently appended skill, not a named
// lookup: dialogue order is skill first, its knowledge source immediately
// after.
func mapKnowledgeSource(st *foldState, it item.ExtractedItem) error {
	if st.lastSkill < 0 {
		return fmt.Errorf("knowledge source with no preceding skill")
	}
	src := strField(it.StructuredData, "source", "name")
	if src == "" {
		src = strings.TrimSpace(it.Content)
	}
	sk := &st.profile.Skills.Skills[st.lastSkill]
	sk.KnowledgeSources = append(sk.KnowledgeSources, src)
	return nil
}

// mapHappyPathStep inserts in arrival order and re-sorts by the explicit
// order field after every insertion; sessions narrate steps out of
// chronological order.
func mapHappyPathStep(st *foldState, it item.ExtractedItem) error {
	desc := strField(it.StructuredData, "description", "step")
	order, ok := intField(it.StructuredData, "order", "position")
	if desc == "" {
		desc = strings.TrimSpace(it.Content)
	}
	if !ok {
		if m := stepPrefixRe.FindStringSubmatch(desc); m != nil {
			order, _ = strconv.Atoi(m[1])
			desc = strings.TrimSpace(desc[len(m[0]):])
		} else {
			order = len(st.profile.Process.HappyPathSteps) + 1
		}
	}
	steps := append(st.profile.Process.HappyPathSteps, ProcessStep{Order: order, Description: desc})
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	st.profile.Process.HappyPathSteps = steps
	return nil
}

func mapExceptionCase(st *foldState, it item.ExtractedItem) error {
	scenario := strField(it.StructuredData, "scenario", "case")
	resolution := strField(it.StructuredData, "resolution", "handling")
	if scenario == "" {
		scenario, resolution = splitLabel(it.Content)
	} else if resolution == "" {
		_, resolution = splitLabel(it.Content)
	}
	if scenario == "" {
		return fmt.Errorf("exception without a scenario")
	}
	st.profile.Process.Exceptions = append(st.profile.Process.Exceptions, Exception{
		Scenario:   scenario,
		Resolution: resolution,
	})
	return nil
}

func mapEscalationRule(st *foldState, it item.ExtractedItem) error {
	rule := strField(it.StructuredData, "rule")
	if rule == "" {
		rule = strings.TrimSpace(it.Content)
	}
	st.profile.Process.EscalationRules = append(st.profile.Process.EscalationRules, rule)
	return nil
}

func mapCaseType(st *foldState, it item.ExtractedItem) error {
	types := strList(it.StructuredData, "case_types", "types")
	if types == nil {
		types = splitBullets(it.Content)
	}
	st.profile.Process.CaseTypes = append(st.profile.Process.CaseTypes, types...)
	return nil
}

func mapScopeIn(st *foldState, it item.ExtractedItem) error {
	entries := strList(it.StructuredData, "items")
	if entries == nil {
		entries = splitBullets(it.Content)
	}
	st.profile.Scope.InScope = append(st.profile.Scope.InScope, entries...)
	return nil
}

func mapScopeOut(st *foldState, it item.ExtractedItem) error {
	entries := strList(it.StructuredData, "items")
	if entries == nil {
		entries = splitBullets(it.Content)
	}
	st.profile.Scope.OutOfScope = append(st.profile.Scope.OutOfScope, entries...)
	return nil
}

func mapGuardrailNever(st *foldState, it item.ExtractedItem) error {
	rule := strField(it.StructuredData, "rule")
	if rule == "" {
		rule = strings.TrimSpace(it.Content)
	}
	st.profile.Guardrails.Never = append(st.profile.Guardrails.Never, rule)
	return nil
}

func mapGuardrailAlways(st *foldState, it item.ExtractedItem) error {
	rule := strField(it.StructuredData, "rule")
	if rule == "" {
		rule = strings.TrimSpace(it.Content)
	}
	st.profile.Guardrails.Always = append(st.profile.Guardrails.Always, rule)
	return nil
}

func mapFinancialLimit(st *foldState, it item.ExtractedItem) error {
	desc := strField(it.StructuredData, "description")
	if desc == "" {
		desc = strings.TrimSpace(it.Content)
	}
	amount, ok := numField(it.StructuredData, "amount", "limit")
	if !ok {
		// Fall back to the leading numeric token in the text; a comma
		// decimal separator is normalised to a dot.
		amount, _ = parseAmount(it.Content)
	}
	st.profile.Guardrails.FinancialLimits = append(st.profile.Guardrails.FinancialLimits, FinancialLimit{
		Description: desc,
		Amount:      amount,
	})
	return nil
}

func mapLegalRestriction(st *foldState, it item.ExtractedItem) error {
	r := strField(it.StructuredData, "restriction", "rule")
	if r == "" {
		r = strings.TrimSpace(it.Content)
	}
	st.profile.Guardrails.LegalRestrictions = append(st.profile.Guardrails.LegalRestrictions, r)
	return nil
}
