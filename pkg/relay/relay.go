// Package relay defines the outbound messaging channel used to deliver
// generated answers to a user outside the HTTP response.
package relay

import (
	"context"
	"errors"

	"github.com/kart-io/guidebot/pkg/infra/resilience"
)

// ErrNoDestination is returned when a message has no recipient address.
var ErrNoDestination = errors.New("relay: destination address is empty")

// Message is a single outbound text message.
type Message struct {
	From string
	To   string
	Body string
}

// Relay delivers messages over an external channel.
type Relay interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// guarded wraps a Relay with a circuit breaker.
type guarded struct {
	next    Relay
	breaker *resilience.Breaker
}

// WithBreaker returns a Relay that fails fast with resilience.ErrCircuitOpen
// while the breaker is open.
func WithBreaker(next Relay, breaker *resilience.Breaker) Relay {
	if breaker == nil {
		return next
	}
	return &guarded{next: next, breaker: breaker}
}

func (g *guarded) Send(ctx context.Context, msg Message) error {
	return g.breaker.Execute(func() error {
		return g.next.Send(ctx, msg)
	})
}

func (g *guarded) Name() string {
	return g.next.Name()
}

// Noop discards every message. Used when relay is disabled.
type Noop struct{}

// Send implements Relay.
func (Noop) Send(context.Context, Message) error { return nil }

// Name implements Relay.
func (Noop) Name() string { return "noop" }
