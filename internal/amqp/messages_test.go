package amqp

import (
	"context"
	"testing"
	"time"
)

func TestDatasetReplacedMessageRoundTrip(t *testing.T) {
	msg := NewDatasetReplacedMessage("ingest-42", 311)

	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := DatasetReplacedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.IngestID != "ingest-42" {
		t.Errorf("IngestID = %s, want ingest-42", decoded.IngestID)
	}
	if decoded.RowCount != 311 {
		t.Errorf("RowCount = %d, want 311", decoded.RowCount)
	}
	if !decoded.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, msg.Timestamp)
	}
}

func TestDatasetReplacedMessageFromInvalidJSON(t *testing.T) {
	if _, err := DatasetReplacedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNilClientPublishIsNoOp(t *testing.T) {
	var c *Client
	if err := c.PublishDatasetReplaced(context.Background(), "x", 1); err != nil {
		t.Errorf("nil client publish should be a no-op, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("nil client close should be a no-op, got %v", err)
	}
}
