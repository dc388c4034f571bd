// Package audit records identity events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
package audit

import (
	"context"
	"time"
)

// Action classifies an identity event.
type Action string

const (
	ActionLogin    Action = "login"
	ActionSignup   Action = "signup"
	ActionLink     Action = "link"
	ActionReissue  Action = "reissue"
	ActionLogout   Action = "logout"
	ActionWithdraw Action = "withdraw"
)

// Event is one audit record. Subject is the member uuid; Provider is empty
// for local-credential events.
type Event struct {
	Subject   string
	Action    Action
	Provider  string
	Detail    string
	Timestamp time.Time
}

// Store is the append-only sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Publisher captures structured audit events.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, subject string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subject)
}
