package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects the pipeline publishes and listens on.
const (
	SubjectSessionStored  = "atlas.session.stored"
	SubjectItemsExtracted = "atlas.items.extracted"
	SubjectItemReviewed   = "atlas.item.reviewed"
)

// SessionEvent announces that a discovery session transcript is available.
type SessionEvent struct {
	SessionID  string `json:"session_id"`
	Title      string `json:"title"`
	Transcript string `json:"transcript,omitempty"`
	Surface    string `json:"surface,omitempty"`
}

// ExtractionEvent announces that items were extracted from a session and
// await review.
type ExtractionEvent struct {
	SessionID     string             `json:"session_id"`
	ItemCount     int                `json:"item_count"`
	AvgConfidence float64            `json:"avg_confidence"`
	GatePassed    bool               `json:"gate_passed"`
	GateIssues    []string           `json:"gate_issues,omitempty"`
	Items         []ExtractedSummary `json:"items"`
}

// ExtractedSummary is the per-item slice of an ExtractionEvent: enough for
// a reviewer surface to render a queue without a round trip.
type ExtractedSummary struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Content        string  `json:"content"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

// ReviewEvent announces a review decision on a single item.
type ReviewEvent struct {
	ItemID     string `json:"item_id"`
	SessionID  string `json:"session_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
