package logger

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level (debug, info, warn, error, fatal).
	Level string `env:"LOG_LEVEL" yaml:"level"`
	// Format selects the output encoder, "json" or "console".
	Format string `env:"LOG_FORMAT" yaml:"format"`
	// Development enables console output with colored levels.
	Development bool `yaml:"development"`
	// OutputPaths is a list of URLs or file paths to write logging output to.
	OutputPaths []string `yaml:"output_paths"`
}

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Default configuration values.
const (
	DefaultLevel  = "info"
	DefaultFormat = FormatJSON
)

// DefaultOutputPaths is the default list of paths to write log output to.
var DefaultOutputPaths = []string{"stdout"}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = DefaultOutputPaths
	}
}
