package libemit

import "github.com/sirupsen/logrus"

type logrusLogger struct {
	*logrus.Entry
}

// NewLogrusLogger routes emitter logs to a logrus entry. A nil entry falls back
// to the standard logrus logger.
func NewLogrusLogger(entry *logrus.Entry) logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return logrusLogger{Entry: entry}
}

func (l logrusLogger) WithField(key string, value any) logger {
	return logrusLogger{Entry: l.Entry.WithField(key, value)}
}
