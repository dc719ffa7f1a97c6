package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/game"
)

// NATSSink publishes side effects to <subject>.<session id>.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// EffectEnvelope is the NATS message body.
type EffectEnvelope struct {
	SessionID string            `json:"session_id"`
	Effects   []game.SideEffect `json:"effects"`
}

// NewNATSSink connects to url.
func NewNATSSink(url, subject string, logger *zap.Logger) (*NATSSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("wildwood-effects"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	logger.Info("nats effect sink connected", zap.String("url", url), zap.String("subject", subject))
	return &NATSSink{conn: conn, subject: subject, logger: logger}, nil
}

// Subject returns the subject for a session.
func (s *NATSSink) Subject(sessionID string) string {
	return s.subject + "." + sessionID
}

// Publish implements game.EffectSink.
func (s *NATSSink) Publish(ctx context.Context, sessionID string, effects []game.SideEffect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(EffectEnvelope{SessionID: sessionID, Effects: effects})
	if err != nil {
		return fmt.Errorf("encode effects: %w", err)
	}
	if err := s.conn.Publish(s.Subject(sessionID), data); err != nil {
		return fmt.Errorf("publish effects: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (s *NATSSink) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}

// StartEmbeddedNATS runs an in-process NATS server. Port -1 picks a free
// port; the client URL is available from the returned server.
func StartEmbeddedNATS(host string, port int, logger *zap.Logger) (*natsserver.Server, error) {
	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   host,
		Port:   port,
		NoSigs: true,
		NoLog:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}
	ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready for connections")
	}
	if logger != nil {
		logger.Info("embedded nats server listening", zap.String("url", ns.ClientURL()))
	}
	return ns, nil
}
