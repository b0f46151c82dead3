package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordMessage is the wire format for one raw survey row on the
// ingestion topic.
type RecordMessage struct {
	Survey    string         `json:"survey"`
	RunID     string         `json:"run_id,omitempty"`
	Row       map[string]any `json:"row"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// IncomingMessage wraps a raw Kafka message with parsed headers.
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	Record *RecordMessage
}

// ParseRecordMessage parses the message value as a survey row message.
// The survey may ride in the payload or in a header.
func (m *IncomingMessage) ParseRecordMessage() error {
	var msg RecordMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	if msg.Survey == "" {
		msg.Survey = m.Headers["survey"]
	}
	if msg.Survey == "" {
		return fmt.Errorf("record message missing survey")
	}
	if msg.Row == nil {
		return fmt.Errorf("record message missing row")
	}
	m.Record = &msg
	return nil
}

// GetSurvey returns the survey this message belongs to.
func (m *IncomingMessage) GetSurvey() string {
	if m.Record != nil {
		return m.Record.Survey
	}
	return m.Headers["survey"]
}

// GetRunID returns the ingestion run id, if the producer tagged one.
func (m *IncomingMessage) GetRunID() string {
	if m.Record != nil && m.Record.RunID != "" {
		return m.Record.RunID
	}
	return m.Headers["run_id"]
}
