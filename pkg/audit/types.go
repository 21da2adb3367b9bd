/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened.
type EventType string

const (
	// EventEmailSent is emitted once an email was delivered to the transport
	// and recorded in state.
	EventEmailSent EventType = "email.sent"
)

// Event represents a single audit event
type Event struct {
	// ID is a unique identifier for this event
	ID string `json:"id"`

	// Type is the type of event
	Type EventType `json:"type"`

	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// Integration is the name of the integration that produced the event
	Integration string `json:"integration"`

	// Target is the email the event is about
	Target Target `json:"target"`

	// Details contains event-specific information
	Details map[string]interface{} `json:"details,omitempty"`
}

// Target identifies the declared email an event refers to.
type Target struct {
	Name    string `json:"name"`
	Subject string `json:"subject,omitempty"`
}

// NewEmailSentEvent builds an EventEmailSent event with a fresh ID.
func NewEmailSentEvent(integration, name, subject string, recipients int) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Type:        EventEmailSent,
		Timestamp:   time.Now().UTC(),
		Integration: integration,
		Target:      Target{Name: name, Subject: subject},
		Details: map[string]interface{}{
			"recipients": recipients,
		},
	}
}
