// Package events publishes roster change notifications ("a player was created", "a card
// joined a team") so other services can react without polling the API.
// Publishing is best effort: a failed publish is logged and never fails the request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Event types, appended to the subject prefix: "roster.player.created".
const (
	PlayerCreated   = "player.created"
	PlayerUpdated   = "player.updated"
	PlayerDeleted   = "player.deleted"
	TeamCreated     = "team.created"
	TeamUpdated     = "team.updated"
	TeamDeleted     = "team.deleted"
	TeamItemAdded   = "team.item_added"
	TeamItemRemoved = "team.item_removed"
	MatchCreated    = "match.created"
	MatchDeleted    = "match.deleted"
	UserRegistered  = "user.registered"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher sends an event of the given type.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Nop drops every event after logging it at debug level. Used when NATS_URL is unset.
type Nop struct{}

func (Nop) Publish(_ context.Context, eventType string, _ any) error {
	log.Debug().Str("event_type", eventType).Msg("event not published (no broker configured)")
	return nil
}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

// NATS publishes events as core NATS messages on <prefix>.<eventType>.
type NATS struct {
	conn   conn
	prefix string
	now    func() time.Time
}

// Connect dials url and returns a publisher plus a close func for shutdown.
func Connect(url, prefix string) (*NATS, func(), error) {
	nc, err := nats.Connect(url,
		nats.Name("fifa-roster-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	return NewNATS(nc, prefix), func() { _ = nc.Drain() }, nil
}

// NewNATS wraps an existing connection.
func NewNATS(c conn, prefix string) *NATS {
	return &NATS{conn: c, prefix: prefix, now: time.Now}
}

func (p *NATS) Publish(_ context.Context, eventType string, payload any) error {
	data, err := json.Marshal(Envelope{Type: eventType, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(eventType), data)
}

// Subject is the NATS subject an event type is published on.
func (p *NATS) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Emit publishes through p and logs instead of returning any failure.
func Emit(ctx context.Context, p Publisher, eventType string, payload any) {
	if err := p.Publish(ctx, eventType, payload); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
