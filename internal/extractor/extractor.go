package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/atlas/internal/anthropic"
	"github.com/MikeSquared-Agency/atlas/internal/item"
	"github.com/MikeSquared-Agency/atlas/internal/jsonx"
	"github.com/MikeSquared-Agency/atlas/internal/metrics"
	"github.com/MikeSquared-Agency/atlas/internal/prompt"
)

const maxResponseTokens = 8192

// checklistAreas groups item types into the discovery areas a complete
// session should touch. Coverage is the fraction of areas with at least
// one extracted item.
var checklistAreas = map[item.Type]string{
	item.TypeStakeholder:        "identity",
	item.TypeGoal:               "context",
	item.TypePainPoint:          "context",
	item.TypePeakPeriod:         "context",
	item.TypeMonthlyVolume:      "context",
	item.TypeCostPerCase:        "context",
	item.TypeKPITarget:          "kpis",
	item.TypeChannel:            "channels",
	item.TypeChannelSLA:         "channels",
	item.TypeChannelVolume:      "channels",
	item.TypeChannelRule:        "channels",
	item.TypeSkill:              "skills",
	item.TypeSkillCore:          "skills",
	item.TypeSkillFuture:        "skills",
	item.TypeCommunication:      "skills",
	item.TypeKnowledgeSource:    "skills",
	item.TypeHappyPathStep:      "process",
	item.TypeExceptionCase:      "process",
	item.TypeEscalationRule:     "process",
	item.TypeCaseType:           "process",
	item.TypeScopeIn:            "scope",
	item.TypeScopeOut:           "scope",
	item.TypeGuardrailNever:     "guardrails",
	item.TypeGuardrailAlways:    "guardrails",
	item.TypeFinancialLimit:     "guardrails",
	item.TypeLegalRestriction:   "guardrails",
}

const totalChecklistAreas = 8

// Batch is one extraction run over a session transcript.
type Batch struct {
	SessionID         string
	Items             []item.ExtractedItem
	AvgConfidence     float64
	EntityCount       int
	ChecklistCoverage float64
}

type envelope struct {
	Items []rawItem `json:"items"`
}

type rawItem struct {
	Type            string         `json:"type"`
	Content         string         `json:"content"`
	StructuredData  map[string]any `json:"structured_data"`
	Confidence      float64        `json:"confidence"`
	SourceQuote     string         `json:"source_quote"`
	SourceSpeaker   string         `json:"source_speaker"`
	SourceTimestamp string         `json:"source_timestamp"`
}

// Extractor turns raw session transcripts into extracted items.
type Extractor struct {
	llm       *anthropic.Client
	sanitizer *prompt.Sanitizer
	logger    *slog.Logger
}

func New(llm *anthropic.Client, logger *slog.Logger) *Extractor {
	return &Extractor{
		llm:       llm,
		sanitizer: prompt.NewSanitizer(logger),
		logger:    logger,
	}
}

// Extract runs one extraction over a transcript. The transcript is treated
// as untrusted data and sanitized before it reaches the model.
func (e *Extractor) Extract(ctx context.Context, sessionID, transcript string) (*Batch, error) {
	start := time.Now()

	instructions := fmt.Sprintf(extractionInstructions, sessionID)
	user := e.sanitizer.BuildSafePrompt(instructions, transcript, sessionID)

	response, err := e.llm.Complete(ctx, systemPrompt, []anthropic.Message{
		{Role: "user", Content: user},
	}, maxResponseTokens)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("llm_error").Inc()
		return nil, fmt.Errorf("completion: %w", err)
	}

	result := jsonx.ExtractAndValidateJSON(response, responseSchema)
	if !result.Success {
		metrics.ExtractionsTotal.WithLabelValues("parse_error").Inc()
		return nil, fmt.Errorf("extraction response: %s", result.Error)
	}

	// Re-encode through the envelope so field types are checked once more
	// on the way into our own structs.
	raw, err := json.Marshal(result.Data)
	if err != nil {
		return nil, fmt.Errorf("re-encode extraction: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.ExtractionsTotal.WithLabelValues("parse_error").Inc()
		return nil, fmt.Errorf("decode extraction: %w", err)
	}

	batch := e.buildBatch(sessionID, env)

	metrics.ExtractionsTotal.WithLabelValues("ok").Inc()
	metrics.ItemsExtracted.Add(float64(len(batch.Items)))
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())

	e.logger.Info("extraction complete",
		"session_id", sessionID,
		"items", len(batch.Items),
		"avg_confidence", batch.AvgConfidence,
		"coverage", batch.ChecklistCoverage,
		"duration_ms", time.Since(start).Milliseconds())

	return batch, nil
}

func (e *Extractor) buildBatch(sessionID string, env envelope) *Batch {
	batch := &Batch{SessionID: sessionID, Items: []item.ExtractedItem{}}

	areas := map[string]bool{}
	var confSum float64
	now := time.Now().UTC()

	for _, r := range env.Items {
		t := item.Type(r.Type)
		if _, known := checklistAreas[t]; !known {
			e.logger.Warn("unknown item type from model", "type", r.Type, "session_id", sessionID)
			continue
		}
		conf := r.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		batch.Items = append(batch.Items, item.ExtractedItem{
			ID:              uuid.New(),
			SessionID:       sessionID,
			Seq:             len(batch.Items),
			Type:            t,
			Content:         r.Content,
			StructuredData:  r.StructuredData,
			Confidence:      conf,
			Status:          item.StatusPending,
			SourceQuote:     r.SourceQuote,
			SourceSpeaker:   r.SourceSpeaker,
			SourceTimestamp: r.SourceTimestamp,
			CreatedAt:       now,
		})
		confSum += conf
		areas[checklistAreas[t]] = true
	}

	batch.EntityCount = len(batch.Items)
	if batch.EntityCount > 0 {
		batch.AvgConfidence = confSum / float64(batch.EntityCount)
	}
	batch.ChecklistCoverage = float64(len(areas)) / float64(totalChecklistAreas)
	return batch
}
