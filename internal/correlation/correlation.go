// Package correlation builds the identifiers attached to every chain of
// remote calls so that API-side logs can be tied back to one estimate run.
package correlation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Header is the HTTP header carrying the correlation ID.
const Header = "X-Request-ID"

// ID is an opaque correlation token.
type ID string

func (id ID) String() string { return string(id) }

// New returns "<machineID>-<random>". An empty machine ID yields only the
// random part.
func New(machineID string) ID {
	machineID = strings.TrimSpace(machineID)
	if machineID == "" {
		zap.L().Warn("correlation: missing machine identifier")
		return ID(random())
	}
	return ID(machineID + "-" + random())
}

// NewMachineID returns a fresh "<unix-millis>-<random>" machine identifier.
func NewMachineID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + random()
}

func random() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type ctxKey struct{}

// WithID returns a child context carrying id.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation ID carried by ctx, if any.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(ctxKey{}).(ID)
	return id, ok && id != ""
}
