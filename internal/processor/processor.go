package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/atlas/internal/bus"
	"github.com/MikeSquared-Agency/atlas/internal/extractor"
	"github.com/MikeSquared-Agency/atlas/internal/gate"
	"github.com/MikeSquared-Agency/atlas/internal/item"
	"github.com/MikeSquared-Agency/atlas/internal/metrics"
	"github.com/MikeSquared-Agency/atlas/internal/store"
)

// Publisher is the slice of the bus client the processor needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// ErrInvalidTransition is returned when a review asks for a status change
// the item's state machine does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// Processor orchestrates the session-to-reviewed-items pipeline.
type Processor struct {
	items         store.ItemStore
	extractor     *extractor.Extractor
	publisher     Publisher
	logger        *slog.Logger
	sessionsURL   string
	gateThreshold float64
}

func New(items store.ItemStore, ext *extractor.Extractor, pub Publisher, sessionsURL string, gateThreshold float64, logger *slog.Logger) *Processor {
	if gateThreshold <= 0 {
		gateThreshold = gate.DefaultThreshold
	}
	return &Processor{
		items:         items,
		extractor:     ext,
		publisher:     pub,
		logger:        logger,
		sessionsURL:   sessionsURL,
		gateThreshold: gateThreshold,
	}
}

// HandleSessionStored is the NATS handler for atlas.session.stored.
func (p *Processor) HandleSessionStored(subject string, data []byte) {
	ctx := context.Background()

	var evt bus.SessionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse session event", "error", err)
		return
	}
	if evt.SessionID == "" {
		p.logger.Error("session event without session_id")
		return
	}

	p.logger.Info("processing session", "session_id", evt.SessionID, "title", evt.Title)

	transcript, err := p.fetchTranscript(ctx, evt)
	if err != nil {
		p.logger.Error("failed to fetch transcript", "session_id", evt.SessionID, "error", err)
		return
	}

	batch, err := p.extractor.Extract(ctx, evt.SessionID, transcript)
	if err != nil {
		p.logger.Error("extraction failed", "session_id", evt.SessionID, "error", err)
		return
	}

	// The quality gate is advisory: a failing batch is still persisted for
	// review, the verdict just travels with the event.
	eval := gate.QuickEvaluate(batch.AvgConfidence, batch.EntityCount, batch.ChecklistCoverage)
	if !eval.Passed {
		for _, issue := range eval.Issues {
			metrics.GateFailuresTotal.WithLabelValues(issue).Inc()
		}
		p.logger.Warn("extraction quality gate failed",
			"session_id", evt.SessionID,
			"score", eval.Score,
			"issues", eval.Issues)
	}

	stored := p.persist(ctx, batch)

	p.publishExtraction(evt.SessionID, stored, batch, eval)

	p.logger.Info("session processed",
		"session_id", evt.SessionID,
		"items", len(stored),
		"gate_passed", eval.Passed)
}

// persist inserts each item independently. A failed insert is logged and
// skipped so one bad row does not lose the rest of the batch.
func (p *Processor) persist(ctx context.Context, batch *extractor.Batch) []item.ExtractedItem {
	stored := make([]item.ExtractedItem, 0, len(batch.Items))
	for _, it := range batch.Items {
		if err := p.items.Insert(ctx, it); err != nil {
			p.logger.Error("failed to store item",
				"item_id", it.ID,
				"session_id", it.SessionID,
				"type", it.Type,
				"error", err)
			continue
		}
		stored = append(stored, it)
	}
	return stored
}

func (p *Processor) publishExtraction(sessionID string, stored []item.ExtractedItem, batch *extractor.Batch, eval gate.BatchEvaluation) {
	if p.publisher == nil {
		return
	}

	summaries := make([]bus.ExtractedSummary, 0, len(stored))
	for _, it := range stored {
		rec := gate.CheckConfidenceGate(it.Confidence, p.gateThreshold)
		summaries = append(summaries, bus.ExtractedSummary{
			ID:             it.ID.String(),
			Type:           string(it.Type),
			Content:        it.Content,
			Confidence:     it.Confidence,
			Recommendation: rec.Recommendation,
		})
	}

	err := p.publisher.Publish(bus.SubjectItemsExtracted, bus.ExtractionEvent{
		SessionID:     sessionID,
		ItemCount:     len(stored),
		AvgConfidence: batch.AvgConfidence,
		GatePassed:    eval.Passed,
		GateIssues:    eval.Issues,
		Items:         summaries,
	})
	if err != nil {
		p.logger.Error("failed to publish extraction event", "session_id", sessionID, "error", err)
	}
}

// ApplyReview records a review decision on one item. Re-applying the item's
// current status is a no-op; any other transition from a reviewed state is
// rejected.
func (p *Processor) ApplyReview(ctx context.Context, id uuid.UUID, status item.Status, reviewer, notes string) (item.ExtractedItem, error) {
	it, err := p.items.FindByID(ctx, id)
	if err != nil {
		return item.ExtractedItem{}, err
	}

	if it.Status == status {
		return it, nil
	}
	if !item.CanTransition(it.Status, status) {
		return item.ExtractedItem{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, it.Status, status)
	}

	if err := p.items.UpdateStatus(ctx, id, status, reviewer, notes); err != nil {
		return item.ExtractedItem{}, err
	}
	metrics.ReviewsTotal.WithLabelValues(string(status)).Inc()

	if p.publisher != nil {
		if err := p.publisher.Publish(bus.SubjectItemReviewed, bus.ReviewEvent{
			ItemID:     id.String(),
			SessionID:  it.SessionID,
			Type:       string(it.Type),
			Status:     string(status),
			ReviewedBy: reviewer,
		}); err != nil {
			p.logger.Error("failed to publish review event", "item_id", id, "error", err)
		}
	}

	p.logger.Info("item reviewed",
		"item_id", id,
		"session_id", it.SessionID,
		"status", status,
		"reviewed_by", reviewer)

	return p.items.FindByID(ctx, id)
}

// ReviewDecision is one entry of a batch review request.
type ReviewDecision struct {
	ItemID uuid.UUID
	Status item.Status
	Notes  string
}

// ReviewOutcome reports the result for one decision of a batch.
type ReviewOutcome struct {
	ItemID uuid.UUID
	Error  error
}

// ApplyReviewBatch applies decisions independently. There is no batch
// atomicity: each item succeeds or fails on its own and the caller gets
// the per-item outcomes.
func (p *Processor) ApplyReviewBatch(ctx context.Context, decisions []ReviewDecision, reviewer string) []ReviewOutcome {
	outcomes := make([]ReviewOutcome, 0, len(decisions))
	for _, d := range decisions {
		_, err := p.ApplyReview(ctx, d.ItemID, d.Status, reviewer, d.Notes)
		outcomes = append(outcomes, ReviewOutcome{ItemID: d.ItemID, Error: err})
	}
	return outcomes
}

func (p *Processor) fetchTranscript(ctx context.Context, evt bus.SessionEvent) (string, error) {
	// Prefer transcript embedded in the event payload.
	if evt.Transcript != "" {
		return evt.Transcript, nil
	}

	if p.sessionsURL == "" {
		return "", fmt.Errorf("no transcript in event payload and SESSIONS_URL not configured for session %s", evt.SessionID)
	}

	url := fmt.Sprintf("%s/api/v1/sessions/%s/transcript", p.sessionsURL, evt.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build sessions request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sessions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sessions service returned %d for session %s", resp.StatusCode, evt.SessionID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read sessions response: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty transcript for session %s", evt.SessionID)
	}

	return string(body), nil
}
