package amqp

import (
	"encoding/json"
	"time"
)

// DatasetReplacedMessage announces that a replace-ingestion swapped the
// active dataset. Consumers can refresh anything derived from the old
// rows; the message carries only identifiers, never amounts.
type DatasetReplacedMessage struct {
	IngestID  string    `json:"ingest_id"`
	RowCount  int       `json:"row_count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetReplacedMessage creates a replace announcement for an ingest.
func NewDatasetReplacedMessage(ingestID string, rowCount int) *DatasetReplacedMessage {
	return &DatasetReplacedMessage{
		IngestID:  ingestID,
		RowCount:  rowCount,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetReplacedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetReplacedMessageFromJSON creates a message from JSON bytes
func DatasetReplacedMessageFromJSON(data []byte) (*DatasetReplacedMessage, error) {
	var msg DatasetReplacedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
