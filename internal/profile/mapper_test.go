package profile

import (
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/atlas/internal/item"
)

func testMapper() *Mapper {
	return NewMapper(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mkItem(t item.Type, content string, data map[string]any) item.ExtractedItem {
	return item.ExtractedItem{
		ID:             uuid.New(),
		SessionID:      "sess-1",
		Type:           t,
		Content:        content,
		StructuredData: data,
		Confidence:     0.9,
		Status:         item.StatusApproved,
	}
}

func TestMapItemsToProfile_EmptyInput(t *testing.T) {
	p := testMapper().MapItemsToProfile(nil)

	// Every list present, never nil.
	if p.Identity.Stakeholders == nil || len(p.Identity.Stakeholders) != 0 {
		t.Error("stakeholders should be empty but present")
	}
	if p.KPIs == nil || p.Channels == nil {
		t.Error("kpis and channels should be empty but present")
	}
	if p.BusinessContext.PainPoints == nil || p.BusinessContext.PeakPeriods == nil {
		t.Error("business context lists should be empty but present")
	}
	if p.Process.HappyPathSteps == nil || p.Process.Exceptions == nil ||
		p.Process.EscalationRules == nil || p.Process.CaseTypes == nil {
		t.Error("process lists should be empty but present")
	}
	if p.Scope.InScope == nil || p.Scope.OutOfScope == nil {
		t.Error("scope lists should be empty but present")
	}
	if p.Guardrails.Never == nil || p.Guardrails.Always == nil ||
		p.Guardrails.FinancialLimits == nil || p.Guardrails.LegalRestrictions == nil {
		t.Error("guardrail lists should be empty but present")
	}
	if p.Skills.Skills == nil {
		t.Error("skills list should be empty but present")
	}
}

func TestMapItemsToProfile_Stakeholders(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeStakeholder, "", map[string]any{"name": "Maria Lopez", "role": "Head of Support"}),
		mkItem(item.TypeStakeholder, "Tom Becker: CFO", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	want := []Stakeholder{
		{Name: "Maria Lopez", Role: "Head of Support"},
		{Name: "Tom Becker", Role: "CFO"},
	}
	if !reflect.DeepEqual(p.Identity.Stakeholders, want) {
		t.Errorf("stakeholders = %+v, want %+v", p.Identity.Stakeholders, want)
	}
}

func TestMapItemsToProfile_FirstGoalWins(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeGoal, "Cut first-response time in half", nil),
		mkItem(item.TypeGoal, "Some later restated goal", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	if p.BusinessContext.ProblemStatement != "Cut first-response time in half" {
		t.Errorf("problem statement = %q, want first goal", p.BusinessContext.ProblemStatement)
	}
}

func TestMapItemsToProfile_HappyPathOrderInvariance(t *testing.T) {
	forward := []item.ExtractedItem{
		mkItem(item.TypeHappyPathStep, "Receive the case", map[string]any{"order": float64(1)}),
		mkItem(item.TypeHappyPathStep, "Classify it", map[string]any{"order": float64(2)}),
		mkItem(item.TypeHappyPathStep, "Resolve or escalate", map[string]any{"order": float64(3)}),
	}
	shuffled := []item.ExtractedItem{forward[2], forward[0], forward[1]}

	p1 := testMapper().MapItemsToProfile(forward)
	p2 := testMapper().MapItemsToProfile(shuffled)

	if !reflect.DeepEqual(p1.Process.HappyPathSteps, p2.Process.HappyPathSteps) {
		t.Errorf("step order should not depend on arrival order:\n%+v\nvs\n%+v",
			p1.Process.HappyPathSteps, p2.Process.HappyPathSteps)
	}
	for i, s := range p1.Process.HappyPathSteps {
		if s.Order != i+1 {
			t.Errorf("step %d has order %d", i, s.Order)
		}
	}
}

func TestMapItemsToProfile_HappyPathNumberedContent(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeHappyPathStep, "3. Send the confirmation", nil),
		mkItem(item.TypeHappyPathStep, "1. Open the ticket", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	steps := p.Process.HappyPathSteps
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if steps[0].Description != "Open the ticket" || steps[0].Order != 1 {
		t.Errorf("first step = %+v, want order 1 'Open the ticket'", steps[0])
	}
	if steps[1].Description != "Send the confirmation" || steps[1].Order != 3 {
		t.Errorf("second step = %+v, want order 3 'Send the confirmation'", steps[1])
	}
}

func TestMapItemsToProfile_ChannelPatching(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeChannel, "Email", nil),
		mkItem(item.TypeChannel, "Live Chat", nil),
		// Case-insensitive name match patches the right channel.
		mkItem(item.TypeChannelSLA, "", map[string]any{"channel": "email", "sla": "24h"}),
		mkItem(item.TypeChannelVolume, "email: 200 per week", nil),
		// Rule without a matching name lands on the most recent channel.
		mkItem(item.TypeChannelRule, "No promises about refunds", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	if len(p.Channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(p.Channels))
	}
	email := p.Channels[0]
	if email.SLA != "24h" {
		t.Errorf("email SLA = %q, want 24h", email.SLA)
	}
	if email.Volume != "200 per week" {
		t.Errorf("email volume = %q, want '200 per week'", email.Volume)
	}
	chat := p.Channels[1]
	if len(chat.Rules) != 1 || chat.Rules[0] != "No promises about refunds" {
		t.Errorf("rule should patch most recent channel, chat rules = %v", chat.Rules)
	}
}

func TestMapItemsToProfile_KnowledgeSourcePatchesLastSkill(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeSkill, "Order lookups", nil),
		mkItem(item.TypeSkill, "Refund handling", nil),
		mkItem(item.TypeKnowledgeSource, "Refund policy wiki page", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	if len(p.Skills.Skills) != 2 {
		t.Fatalf("got %d skills, want 2", len(p.Skills.Skills))
	}
	if len(p.Skills.Skills[0].KnowledgeSources) != 0 {
		t.Errorf("first skill should have no sources, got %v", p.Skills.Skills[0].KnowledgeSources)
	}
	got := p.Skills.Skills[1].KnowledgeSources
	if len(got) != 1 || got[0] != "Refund policy wiki page" {
		t.Errorf("last skill sources = %v, want the wiki page", got)
	}
}

func TestMapItemsToProfile_KnowledgeSourceWithoutSkill(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeKnowledgeSource, "Orphaned source", nil),
		mkItem(item.TypeGoal, "Still maps the rest", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	// The bad item is skipped, the fold continues.
	if p.BusinessContext.ProblemStatement != "Still maps the rest" {
		t.Error("fold should continue past a failing item")
	}
	if len(p.Skills.Skills) != 0 {
		t.Errorf("no skill should exist, got %v", p.Skills.Skills)
	}
}

func TestMapItemsToProfile_UnknownTypeSkipped(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.Type("FUTURE_THING"), "something new", nil),
		mkItem(item.TypeGuardrailNever, "Never share customer data", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	if len(p.Guardrails.Never) != 1 {
		t.Errorf("known item should still map, never = %v", p.Guardrails.Never)
	}
}

func TestMapItemsToProfile_FinancialLimitFallback(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeFinancialLimit, "", map[string]any{"description": "Max refund", "amount": float64(500)}),
		mkItem(item.TypeFinancialLimit, "250,50 max goodwill credit", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	limits := p.Guardrails.FinancialLimits
	if len(limits) != 2 {
		t.Fatalf("got %d limits, want 2", len(limits))
	}
	if limits[0].Amount != 500 {
		t.Errorf("structured amount = %f, want 500", limits[0].Amount)
	}
	// Comma decimal separator normalised to a dot.
	if math.Abs(limits[1].Amount-250.50) > 0.001 {
		t.Errorf("parsed amount = %f, want 250.50", limits[1].Amount)
	}
}

func TestMapItemsToProfile_KPIFallbacks(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypeKPITarget, "", map[string]any{"name": "CSAT", "target": "90%"}),
		mkItem(item.TypeKPITarget, "Deflection rate should hit 40% by Q3", map[string]any{"name": "Deflection rate"}),
		mkItem(item.TypeKPITarget, "Handle time: under 6 minutes", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	want := []KPI{
		{Name: "CSAT", Target: "90%"},
		{Name: "Deflection rate", Target: "40%"},
		{Name: "Handle time", Target: "under 6 minutes"},
	}
	if !reflect.DeepEqual(p.KPIs, want) {
		t.Errorf("kpis = %+v, want %+v", p.KPIs, want)
	}
}

func TestMapItemsToProfile_BulletSplitting(t *testing.T) {
	items := []item.ExtractedItem{
		mkItem(item.TypePainPoint, "slow responses • agents overloaded • no weekend coverage", nil),
		mkItem(item.TypeScopeIn, "order status\n- returns\n- shipping questions", nil),
	}

	p := testMapper().MapItemsToProfile(items)

	if len(p.BusinessContext.PainPoints) != 3 {
		t.Errorf("pain points = %v, want 3 entries", p.BusinessContext.PainPoints)
	}
	if len(p.Scope.InScope) != 3 {
		t.Errorf("in scope = %v, want 3 entries", p.Scope.InScope)
	}
}

func TestRegisterHandler_Extension(t *testing.T) {
	custom := item.Type("TEST_CUSTOM_NOTE")
	RegisterHandler(custom, func(st *foldState, it item.ExtractedItem) error {
		st.profile.Scope.InScope = append(st.profile.Scope.InScope, it.Content)
		return nil
	})
	defer delete(handlers, custom)

	p := testMapper().MapItemsToProfile([]item.ExtractedItem{
		mkItem(custom, "handled by extension", nil),
	})

	if len(p.Scope.InScope) != 1 || p.Scope.InScope[0] != "handled by extension" {
		t.Errorf("registered handler not invoked, in scope = %v", p.Scope.InScope)
	}
}
