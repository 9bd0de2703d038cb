package progress

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSSink publishes events as JSON on <prefix>.<correlationID> so a UI can
// follow a single run. Trace context from ctx travels in message headers.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSSink publishes on nc under prefix.
func NewNATSSink(nc *nats.Conn, prefix string) *NATSSink {
	return &NATSSink{nc: nc, prefix: prefix}
}

// Subject returns the subject events of cid are published on.
func (s *NATSSink) Subject(cid string) string {
	return s.prefix + "." + cid
}

func (s *NATSSink) Emit(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		zap.L().Warn("progress: encode event", zap.Error(err))
		return
	}
	msg := &nats.Msg{Subject: s.Subject(e.CorrelationID), Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if err := s.nc.PublishMsg(msg); err != nil {
		zap.L().Warn("progress: publish event",
			zap.String("subject", msg.Subject), zap.Error(err))
	}
}
