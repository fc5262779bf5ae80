package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const DefaultHandshakeTimeout = 10 * time.Second

type Config struct {
	URL string
	// RequestID tags the listen request; zero picks a random id.
	RequestID        int
	HandshakeTimeout time.Duration
}

// Source streams beacon frames from a ground station websocket.
type Source struct {
	url       string
	requestID int
	dialer    websocket.Dialer
}

func NewSource(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNoURL
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.RequestID == 0 {
		cfg.RequestID = 1 + rand.Intn(9999)
	}
	return &Source{
		url:       cfg.URL,
		requestID: cfg.RequestID,
		dialer:    websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
	}, nil
}

func (s *Source) RequestID() int {
	return s.requestID
}

// Listen sends the listen request and pushes each beacon frame to frames
// until ctx ends, the connection drops or the station reports an error.
// It does not close frames.
func (s *Source) Listen(ctx context.Context, frames chan<- []byte) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("ingest: dial %s: %w", s.url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if err := conn.WriteJSON(ListenRequest(s.requestID)); err != nil {
		return fmt.Errorf("ingest: send listen request: %w", err)
	}
	log.Info().Str("url", s.url).Int("request_id", s.requestID).Msg("ingest.Listen started")

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ingest: read: %w", err)
		}
		switch env.Type {
		case TypeBeacon:
			if env.RequestID != s.requestID {
				log.Warn().Int("want", s.requestID).Int("got", env.RequestID).Msg("ingest.Listen request id mismatch")
			}
			if len(env.AX25Frame) == 0 {
				log.Warn().Err(ErrNoFrame).Msg("ingest.Listen empty beacon")
				continue
			}
			select {
			case frames <- env.AX25Frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		case TypeError:
			return fmt.Errorf("%w: %s", ErrRemote, env.Message)
		default:
			log.Debug().Str("type", env.Type).Msg("ingest.Listen ignoring message")
		}
	}
}
