// Package stream carries entity change notifications over PostgreSQL
// LISTEN/NOTIFY.
//
// Each table publishes on the channel returned by Channel. Generated
// Notify<E> functions publish a JSON Envelope, and generated <E>Subscriber
// types decode envelopes received by a Subscriber back into typed events.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/entgen"
	"github.com/syssam/entgen/dialect/sql"
)

// ChannelPrefix prefixes every entity channel name.
const ChannelPrefix = "entity_"

// Channel returns the notification channel of a table.
func Channel(table string) string {
	return ChannelPrefix + table
}

// ErrClosed is reported once the underlying listener has been closed.
var ErrClosed = errors.New("stream: listener closed")

// ErrorKind classifies stream failures.
type ErrorKind uint8

// Stream error kinds.
const (
	// KindDatabase covers LISTEN/NOTIFY and connection failures.
	KindDatabase ErrorKind = iota + 1
	// KindDeserialize covers payloads that could not be decoded.
	KindDeserialize
	// KindSerialize covers events that could not be encoded for publishing.
	KindSerialize
)

func (k ErrorKind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindDeserialize:
		return "deserialize"
	case KindSerialize:
		return "serialize"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error is returned by every fallible stream operation.
type Error struct {
	Kind    ErrorKind
	Channel string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("stream: ")
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Channel != "" {
		b.WriteString(" on ")
		b.WriteString(e.Channel)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewDatabaseError wraps err as a KindDatabase error.
func NewDatabaseError(channel string, err error) *Error {
	return &Error{Kind: KindDatabase, Channel: channel, Err: err}
}

// NewDeserializeError wraps err as a KindDeserialize error.
func NewDeserializeError(channel string, err error) *Error {
	return &Error{Kind: KindDeserialize, Channel: channel, Err: err}
}

// NewSerializeError wraps err as a KindSerialize error.
func NewSerializeError(channel string, err error) *Error {
	return &Error{Kind: KindSerialize, Channel: channel, Err: err}
}

// IsKind reports whether err is a stream Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Envelope is the JSON payload published for every event.
type Envelope struct {
	Kind    entgen.EventKind `json:"kind"`
	Payload json.RawMessage  `json:"payload"`
}

// Encode marshals payload into an Envelope of the given kind.
func Encode(kind entgen.EventKind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: kind, Payload: raw})
}

// Decode unmarshals an Envelope.
func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Notify publishes payload on channel with pg_notify.
func Notify(ctx context.Context, ex sql.ExecQuerier, channel string, payload []byte) error {
	if _, err := ex.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, string(payload)); err != nil {
		return NewDatabaseError(channel, err)
	}
	return nil
}

// Source delivers raw notifications. *pq.Listener implements it.
type Source interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// ListenerOption configures NewListener.
type ListenerOption func(*listenerConfig)

type listenerConfig struct {
	minReconnect time.Duration
	maxReconnect time.Duration
	logger       *slog.Logger
}

// WithReconnectInterval sets the listener reconnect backoff bounds.
func WithReconnectInterval(minInterval, maxInterval time.Duration) ListenerOption {
	return func(c *listenerConfig) {
		c.minReconnect, c.maxReconnect = minInterval, maxInterval
	}
}

// WithLogger sets the logger used for connection state changes.
func WithLogger(l *slog.Logger) ListenerOption {
	return func(c *listenerConfig) {
		c.logger = l
	}
}

// NewListener returns a pq.Listener for dsn that logs connection state
// changes through slog.
func NewListener(dsn string, opts ...ListenerOption) *pq.Listener {
	cfg := &listenerConfig{
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return pq.NewListener(dsn, cfg.minReconnect, cfg.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			cfg.logger.Debug("stream listener connected")
		case pq.ListenerEventDisconnected:
			cfg.logger.Warn("stream listener disconnected", "error", err)
		case pq.ListenerEventReconnected:
			cfg.logger.Info("stream listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			cfg.logger.Warn("stream listener connection attempt failed", "error", err)
		}
	})
}

// Subscriber receives raw payloads published on one channel.
type Subscriber struct {
	src     Source
	channel string
	once    sync.Once
	err     error
}

// Subscribe starts listening on channel.
func Subscribe(src Source, channel string) (*Subscriber, error) {
	if err := src.Listen(channel); err != nil {
		return nil, NewDatabaseError(channel, err)
	}
	return &Subscriber{src: src, channel: channel}, nil
}

// Channel returns the channel the subscriber listens on.
func (s *Subscriber) Channel() string { return s.channel }

// Recv blocks until a payload arrives on the channel or ctx is done.
// Once the source is closed every call returns ErrClosed wrapped in a
// KindDatabase Error.
func (s *Subscriber) Recv(ctx context.Context) ([]byte, error) {
	ch := s.src.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case n, ok := <-ch:
			if payload, done, err := s.accept(n, ok); done {
				return payload, err
			}
		}
	}
}

// TryRecv returns a pending payload without blocking. The boolean is false
// when nothing was pending.
func (s *Subscriber) TryRecv() ([]byte, bool, error) {
	ch := s.src.NotificationChannel()
	for {
		select {
		case n, ok := <-ch:
			payload, done, err := s.accept(n, ok)
			if !done {
				continue
			}
			if err != nil {
				return nil, false, err
			}
			return payload, true, nil
		default:
			return nil, false, nil
		}
	}
}

// accept filters one notification. done is false when the notification
// should be ignored: a nil notification marks a reconnect, and other
// channels may share the same listener.
func (s *Subscriber) accept(n *pq.Notification, ok bool) (payload []byte, done bool, err error) {
	if !ok {
		return nil, true, NewDatabaseError(s.channel, ErrClosed)
	}
	if n == nil || n.Channel != s.channel {
		return nil, false, nil
	}
	return []byte(n.Extra), true, nil
}

// Close closes the underlying source. It is safe to call more than once.
func (s *Subscriber) Close() error {
	s.once.Do(func() {
		if err := s.src.Close(); err != nil {
			s.err = NewDatabaseError(s.channel, err)
		}
	})
	return s.err
}
