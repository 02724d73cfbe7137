package engine

import (
	"sync"

	"github.com/wippyai/js-runtime/resource"
	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the engine's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the engine's logger.
// This must be called before any engine operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// tableLogger traces handle table traffic at debug level.
type tableLogger struct{}

func (tableLogger) OnResourceEvent(ev resource.Event) {
	if ce := Logger().Check(zap.DebugLevel, "handle "+ev.Type.String()); ce != nil {
		ce.Write(
			zap.Uint32("handle", uint32(ev.Handle)),
			zap.String("kind", kindName(ev.TypeID)),
			zap.Uint32("refs", ev.RefCount),
		)
	}
}
