package logger

import (
	"abi_resolver/internal/app/port"

	"go.uber.org/zap"
)

// zapAdapter implements port.Logger on top of zap.SugaredLogger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

// NewZapAdapter wraps z so services can log without importing zap.
func NewZapAdapter(z *zap.Logger) port.Logger {
	return &zapAdapter{s: z.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() port.Logger {
	return &zapAdapter{s: zap.NewNop().Sugar()}
}

func (a *zapAdapter) Info(msg string, args ...any) {
	a.s.Infow(msg, args...)
}

func (a *zapAdapter) Debug(msg string, args ...any) {
	a.s.Debugw(msg, args...)
}

func (a *zapAdapter) Warn(msg string, args ...any) {
	a.s.Warnw(msg, args...)
}

func (a *zapAdapter) Error(msg string, args ...any) {
	a.s.Errorw(msg, args...)
}
