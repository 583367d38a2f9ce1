package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectListingCreated = "listings.created"
	SubjectListingUpdated = "listings.updated"
)

// ListingEvent is the payload published after a listing is persisted.
type ListingEvent struct {
	ListingID  int64     `json:"listingId"`
	OwnerID    int64     `json:"ownerId"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	ImageCount int       `json:"imageCount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher sends listing events to NATS.
type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("gigmarket-listings"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, event ListingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

func (p *Publisher) Close() {
	p.conn.Close()
}

// Nop discards events. Used when NATS_URL is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, ListingEvent) error { return nil }
