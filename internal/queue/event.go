// Package queue defines auth event payloads exchanged over the message
// broker, the publisher that emits them and the audit consumer.
package queue

import "time"

// QueueName is the durable queue auth events are published to.
const QueueName = "auth.events"

// EventType names what happened to an account.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventUserSignedIn   EventType = "user.signed_in"
	EventTokenRefreshed EventType = "token.refreshed"
)

// AuthEvent is published after a successful signup, signin or refresh.
// It never carries tokens or password material.
type AuthEvent struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	RemoteIP   string    `json:"remote_ip,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
