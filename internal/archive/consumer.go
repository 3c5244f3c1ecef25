// Package archive drains the durable event stream into long-term storage.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"auctionhouse/internal/events"
	applog "auctionhouse/internal/log"
)

const DurableName = "auction-archiver"

var ErrMalformed = errors.New("malformed event")

type Sink interface {
	Store(ctx context.Context, e events.Event) error
}

// Decode parses one stream message. Events without an id, type or item are rejected.
func Decode(data []byte) (events.Event, error) {
	var e events.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.ID == "" || e.Type == "" || e.ItemID == "" {
		return e, fmt.Errorf("%w: missing id, type or itemId", ErrMalformed)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e, nil
}

// acker is the part of jetstream.Msg that settles a delivery.
type acker interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// settle stores one message. Malformed messages are terminated, sink failures are
// redelivered, stored events are acked.
func settle(ctx context.Context, sink Sink, m acker, timeout time.Duration) error {
	e, err := Decode(m.Data())
	if err != nil {
		_ = m.Term()
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sink.Store(sctx, e); err != nil {
		_ = m.Nak()
		return err
	}
	return m.Ack()
}

type Consumer struct {
	Sink    Sink
	Timeout time.Duration

	conn *nats.Conn
	cons jetstream.Consumer
}

// NewConsumer connects to NATS and binds the durable archive consumer on the event stream.
func NewConsumer(ctx context.Context, url string, sink Sink) (*Consumer, error) {
	nc, err := nats.Connect(url, nats.Name("auctionhouse-archiver"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	stream, err := events.EnsureStream(ctx, js)
	if err != nil {
		nc.Close()
		return nil, err
	}
	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       DurableName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    10,
		FilterSubject: events.SubjectPrefix + ".>",
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	return &Consumer{Sink: sink, Timeout: 10 * time.Second, conn: nc, cons: cons}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	cc, err := c.cons.Consume(func(msg jetstream.Msg) {
		if err := settle(ctx, c.Sink, msg, c.Timeout); err != nil {
			applog.Error(nil, "archive.store", err, map[string]any{"subject": msg.Subject()})
			return
		}
		applog.Info(nil, "archive.stored", map[string]any{"subject": msg.Subject()})
	})
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	defer cc.Stop()
	<-ctx.Done()
	return nil
}

func (c *Consumer) Close() { c.conn.Close() }
