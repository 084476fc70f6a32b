package log

type nopLogger struct{}

// Nop returns a logger that discards everything. Tests and embedders that
// bring their own logging use it as the default.
func Nop() Log { return nopLogger{} }

func (nopLogger) Log(Level, string, ...Field) {}
func (nopLogger) Debug(string, ...Field)      {}
func (nopLogger) Info(string, ...Field)       {}
func (nopLogger) Warn(string, ...Field)       {}
func (nopLogger) Error(string, ...Field)      {}
func (nopLogger) Fatal(string, ...Field)      {}
func (n nopLogger) With(...Field) Log         { return n }
func (nopLogger) SetLevel(Level)              {}
func (nopLogger) GetLevel() Level             { return LevelInfo }
