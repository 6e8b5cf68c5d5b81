package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"stackstactoe/config"
	"stackstactoe/internal/game"

	"github.com/nats-io/nats.go"
)

const subjectRoot = "stackstactoe"

func Connect(cfg *config.Config) (*nats.Conn, nats.JetStreamContext, error) {
	address := fmt.Sprintf("%s:%d", cfg.NATS.Host, cfg.NATS.Port)
	opts := []nats.Option{
		nats.Name("stackstactoe"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("Disconnected from NATS: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("Reconnected to NATS at %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(address, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return nc, js, nil
}

// ConfigureStream creates the event stream, or updates it when it already
// exists with different settings.
func ConfigureStream(js nats.JetStreamContext, streamCfg *config.StreamConfig) error {
	sc := &nats.StreamConfig{
		Name:       streamCfg.Name,
		Subjects:   streamCfg.Subjects,
		Duplicates: 2 * time.Minute,
	}
	_, err := js.AddStream(sc)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to add stream: %w", err)
	}
	if _, err := js.UpdateStream(sc); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	return nil
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// GameSubject is where events of one game are published. Pass "*" as the
// event type to build a subscription filter.
func GameSubject(gameID uint64, eventType string) string {
	return subjectRoot + ".game." + strconv.FormatUint(gameID, 10) + "." + eventType
}

func PlayerSubject(address, eventType string) string {
	return subjectRoot + ".player." + token(address) + "." + eventType
}

// Subject picks the subject for ev: game events go to the game, the rest to
// the player they concern.
func Subject(ev game.Event) string {
	if ev.GameID != nil {
		return GameSubject(*ev.GameID, string(ev.Type))
	}
	return PlayerSubject(ev.Player, string(ev.Type))
}

// Publisher sends committed ledger events to JetStream.
type Publisher struct {
	js nats.JetStreamContext
}

func NewPublisher(js nats.JetStreamContext) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) Publish(ctx context.Context, ev game.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	subject := Subject(ev)
	if _, err := p.js.Publish(subject, data, nats.MsgId(ev.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Subscriber delivers live events to in-process listeners such as the
// websocket feed.
type Subscriber struct {
	nc *nats.Conn
}

func NewSubscriber(nc *nats.Conn) *Subscriber {
	return &Subscriber{nc: nc}
}

// SubscribeGame calls fn for every event of the given game until the
// returned cancel func is called. Undecodable messages are logged and
// skipped.
func (s *Subscriber) SubscribeGame(gameID uint64, fn func(game.Event)) (func(), error) {
	subject := GameSubject(gameID, "*")
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev game.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("Error decoding event on %s: %v", msg.Subject, err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing from %s: %v", subject, err)
		}
	}, nil
}
