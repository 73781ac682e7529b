// internal/writer/types.go
package writer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/status"
)

// StatusWriter is the delivery-only contract for snapshots.
// It receives a snapshot and projects it onto one sink.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// Source is where snapshots come from (the poll coordinator).
type Source interface {
	Subscribe(fn func(status.Snapshot)) (unsubscribe func())
}

// Commander is the control surface a sink may drive.
type Commander interface {
	SetLimitPower(ctx context.Context, watts float64) error
	SetPowerOnOff(ctx context.Context, on bool) error
	SetClock(ctx context.Context, t time.Time) error
	RequestRefresh()
}

// Attach subscribes w to src. Delivery errors are logged, never returned:
// a sink that falls behind must not stall the coordinator.
func Attach(src Source, w StatusWriter, sink string, log *zap.Logger) (detach func()) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("sink", sink))

	return src.Subscribe(func(s status.Snapshot) {
		if err := w.WriteStatus(s); err != nil {
			log.Warn("snapshot delivery failed", zap.Error(err))
		}
	})
}
