package libemit

import "go.uber.org/zap"

type zapLogger struct {
	*zap.SugaredLogger
}

// NewZapLogger routes emitter logs to a sugared zap logger. A nil logger falls
// back to zap's global one.
func NewZapLogger(l *zap.SugaredLogger) logger {
	if l == nil {
		l = zap.S()
	}
	return zapLogger{SugaredLogger: l}
}

func (l zapLogger) WithField(key string, value any) logger {
	return zapLogger{SugaredLogger: l.SugaredLogger.With(key, value)}
}
