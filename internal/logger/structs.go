package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `toml:"enabled"`
	UseConsoleWriter bool // human readable output instead of JSON lines
}

// RollingFile configures one lumberjack rotated log file.
type RollingFile struct {
	Name       string `toml:"name"`
	MaxSize    int    `toml:"maxSize"`    // megabytes
	MaxBackups int    `toml:"maxBackups"` // rotated files to keep
	MaxAge     int    `toml:"maxAge"`     // days
}

// LogFile implements a file based logger split by level.
type LogFile struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`

	Access RollingFile `toml:"access"`
	Error  RollingFile `toml:"error"`
	Info   RollingFile `toml:"info"`
	Trace  RollingFile `toml:"trace"`
	Warn   RollingFile `toml:"warn"`
}

// Log implements the logger config.
type Log struct {
	LogLevel     string // trace, debug, info, warn, error.
	ReportCaller bool

	// EnableAccessLogToConsole writes the http access log to stdout as well.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool
	DisableCheckAlive        bool // do not log /checkalive calls

	AppName     string
	ServiceName string

	// Console used mainly for docker and dev.
	Console Console

	// File based logging with rotation.
	File LogFile `toml:"file"`
}
