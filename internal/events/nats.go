package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName    = "AUCTION_EVENTS"
	SubjectPrefix = "auction.events"
)

// Subject is auction.events.<type>.<item id>, e.g. auction.events.bid.placed.<id>.
func Subject(e Event) string { return fmt.Sprintf("%s.%s.%s", SubjectPrefix, e.Type, e.ItemID) }

// EnsureStream creates or updates the durable event stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	s, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Auction events for archival",
		Subjects:    []string{SubjectPrefix + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update stream: %w", err)
	}
	return s, nil
}

// NATSPublisher persists events on a JetStream stream; Publish waits for the server ack.
type NATSPublisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func NewNATSPublisher(ctx context.Context, url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("auctionhouse-api"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if _, err := EnsureStream(ctx, js); err != nil {
		nc.Close()
		return nil, err
	}
	return &NATSPublisher{conn: nc, js: js}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	// event id doubles as the JetStream dedup key
	if _, err := p.js.Publish(ctx, Subject(e), data, jetstream.WithMsgID(e.ID)); err != nil {
		return fmt.Errorf("jetstream publish: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() { p.conn.Close() }
