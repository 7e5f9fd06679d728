// Package telemetry republishes tracker imagery and commander transitions
// for external monitoring. It is strictly one-way: nothing published here
// ever feeds back into detection or control.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/pkg/logger"
	"github.com/kenanunal/lander/pkg/metrics"
)

// Default relay subjects, appended to the configured prefix.
const (
	defaultSubjectPrefix = "lander.telemetry"
	framesSubject        = "frames"
	transitionsSubject   = "transitions"
)

// Relay publishes annotated frames and phase transitions over NATS.
// A nil *Relay is a valid no-op, so callers can wire it unconditionally.
type Relay struct {
	conn   *nats.Conn
	prefix string
	log    logger.Logger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithSubjectPrefix overrides the default subject prefix.
func WithSubjectPrefix(p string) RelayOption {
	return func(r *Relay) {
		if p != "" {
			r.prefix = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) RelayOption {
	return func(r *Relay) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRelay connects to the NATS server at url.
func NewRelay(url string, opts ...RelayOption) (*Relay, error) {
	conn, err := nats.Connect(url, nats.Name("lander-telemetry"))
	if err != nil {
		return nil, fmt.Errorf("connect telemetry relay: %w", err)
	}
	r := &Relay{
		conn:   conn,
		prefix: defaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("telemetry")
	}
	return r, nil
}

// PublishFrame republishes an annotated frame verbatim: raw pixel payload,
// frame metadata in headers.
func (r *Relay) PublishFrame(ctx context.Context, f *detect.Frame) {
	if r == nil {
		return
	}
	msg := nats.NewMsg(r.prefix + "." + framesSubject)
	msg.Header.Set("Frame-Id", f.ID)
	msg.Header.Set("Frame-Ts", f.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	msg.Header.Set("Frame-Dim", fmt.Sprintf("%dx%d", f.Width, f.Height))
	msg.Data = f.Pixels

	if err := r.conn.PublishMsg(msg); err != nil {
		metrics.RecordRelayError()
		r.log.Warn(ctx, "frame republish failed", logger.Error(err))
		return
	}
	metrics.RecordRelayPublish()
}

// PublishTransition publishes a phase transition as JSON so an operator can
// see why a descent paused or aborted.
func (r *Relay) PublishTransition(ctx context.Context, tr commander.Transition) {
	if r == nil {
		return
	}
	payload, err := json.Marshal(tr)
	if err != nil {
		metrics.RecordRelayError()
		r.log.Error(ctx, "transition encode failed", logger.Error(err))
		return
	}
	if err := r.conn.Publish(r.prefix+"."+transitionsSubject, payload); err != nil {
		metrics.RecordRelayError()
		r.log.Warn(ctx, "transition republish failed", logger.Error(err))
		return
	}
	metrics.RecordRelayPublish()
}

// Close drains and closes the connection.
func (r *Relay) Close() {
	if r == nil || r.conn == nil {
		return
	}
	_ = r.conn.Drain()
}
