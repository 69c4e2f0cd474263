package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"custos/internal/core"
)

// Routing keys on the custos exchange.
const (
	RoutingLoadCompleted = "custos.load.completed"
)

// LoadCompletedMessage announces the outcome of a dashboard load. It
// carries counters only, never cost rows.
type LoadCompletedMessage struct {
	LoadID    string              `json:"load_id"`
	Source    string              `json:"source"`
	Outcome   string              `json:"outcome"`
	Reason    string              `json:"reason,omitempty"`
	Stats     core.NormalizeStats `json:"stats"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewLoadCompletedMessage stamps a message with the current time.
func NewLoadCompletedMessage(loadID, source, outcome, reason string, stats core.NormalizeStats) *LoadCompletedMessage {
	return &LoadCompletedMessage{
		LoadID:    loadID,
		Source:    source,
		Outcome:   outcome,
		Reason:    reason,
		Stats:     stats,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LoadCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestMessage asks the dashboard to drop its cached sheet, e.g.
// after a new export was pushed to the repository. An empty Source means
// every source.
type RefreshRequestMessage struct {
	Source      string    `json:"source,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestMessageFromJSON decodes a refresh request.
func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode refresh request: %w", err)
	}
	return &msg, nil
}
