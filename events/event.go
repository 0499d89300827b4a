// event.go - Event types and publisher selection

// Package events publishes account lifecycle events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"go-user-backend/config"
)

// Event types.
const (
	UserRegistered      = "user.registered"
	UserCreated         = "user.created"
	UserUpdated         = "user.updated"
	UserStatusChanged   = "user.status_changed"
	UserPasswordChanged = "user.password_changed"
	UserLoggedIn        = "user.login"
)

type Event struct {
	Type   string         `json:"type"` // One of the User* constants
	UserID uint           `json:"userId"`
	Email  string         `json:"email,omitempty"`
	At     time.Time      `json:"at"` // When the change happened
	Data   map[string]any `json:"data,omitempty"`
}

func (e Event) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to one backend.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// LogPublisher writes events to the standard logger.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	payload, err := e.Payload()
	if err != nil {
		return err
	}
	log.Printf("event %s: %s", e.Type, payload)
	return nil
}

func (LogPublisher) Close() error { return nil }

// New builds the publisher selected by cfg.EventsBackend.
func New(cfg *config.Config) (Publisher, error) {
	switch cfg.EventsBackend {
	case "", "none":
		return NopPublisher{}, nil
	case "log":
		return LogPublisher{}, nil
	case "mqtt":
		return NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.EventTopicPrefix)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventTopicPrefix)
	}
	return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
}

func mqttTopic(prefix, eventType string) string {
	return strings.Trim(prefix, "/") + "/" + strings.ReplaceAll(eventType, ".", "/")
}

func kafkaTopic(prefix, eventType string) string {
	return strings.Trim(prefix, ".") + "." + eventType
}
