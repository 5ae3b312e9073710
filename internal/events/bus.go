/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventScheduleCreated EventType = "schedule.created"
	EventScheduleUpdated EventType = "schedule.updated"
	EventScheduleDeleted EventType = "schedule.deleted"

	EventClockIn      EventType = "timeclock.clock_in"
	EventClockOut     EventType = "timeclock.clock_out"
	EventEntryFlagged EventType = "timeclock.flagged"

	EventDeliveryLogged   EventType = "delivery.logged"
	EventDeliveryReceived EventType = "delivery.received"

	EventIncidentReported EventType = "incident.reported"
	EventIncidentResolved EventType = "incident.resolved"

	EventNotification EventType = "notification"

	// Cache invalidation events
	EventJobUpdated      EventType = "cache.job_updated"
	EventJobDeleted      EventType = "cache.job_deleted"
	EventEmployeeUpdated EventType = "cache.employee_updated"
	EventEmployeeDeleted EventType = "cache.employee_deleted"

	// Audit events (for operations that need explicit audit logging)
	EventAuditScheduleCreate EventType = "audit.schedule.create"
	EventAuditScheduleUpdate EventType = "audit.schedule.update"
	EventAuditScheduleDelete EventType = "audit.schedule.delete"
	EventAuditJobCreate      EventType = "audit.job.create"
	EventAuditEmployeeCreate EventType = "audit.employee.create"
	EventAuditUserLogin      EventType = "audit.user.login"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// PubSub is satisfied by the in-process Bus and by the broker-backed
// bridges, letting services stay agnostic to the deployment topology.
type PubSub interface {
	Subscribe(eventType EventType) Subscriber
	Publish(eventType EventType, payload Payload)
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers drop events rather
// than block the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
