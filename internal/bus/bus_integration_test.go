//go:build integration

package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PubSub(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan SessionEvent, 1)
	err = client.Subscribe(SubjectSessionStored, func(subject string, data []byte) {
		var evt SessionEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Errorf("decode event: %v", err)
			return
		}
		received <- evt
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := SessionEvent{SessionID: "it-sess-1", Title: "integration", Transcript: "hello"}
	if err := client.Publish(SubjectSessionStored, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-received:
		if got.SessionID != want.SessionID || got.Transcript != want.Transcript {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
