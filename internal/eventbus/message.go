/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus onto an external broker
// so multiple Sitewise nodes see each other's events. Both bridges fall back
// to in-memory delivery when the broker is unreachable.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sitewisehq/sitewise/internal/events"
)

// message is the wire envelope shared by the NATS and Redis bridges. NodeID
// identifies the publishing node so bridges can skip their own echoes.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
	})
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal bus message: %w", err)
	}
	return &msg, nil
}
