package libemit

type noopLogger struct{}

func (l noopLogger) WithField(string, any) logger { return l }

func (noopLogger) Debug(...any) {}

func (noopLogger) Debugf(string, ...any) {}

func (noopLogger) Info(...any) {}

func (noopLogger) Infof(string, ...any) {}

func (noopLogger) Warn(...any) {}

func (noopLogger) Warnf(string, ...any) {}

func (noopLogger) Error(...any) {}

func (noopLogger) Errorf(string, ...any) {}
