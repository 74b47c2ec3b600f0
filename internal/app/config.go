package app

// Config holds the settings the serve command collects from flags and
// environment before bootstrapping an Application.
type Config struct {
	// PluginDir is where component binaries and policy files are cached.
	PluginDir string

	// Debug raises the log level to debug.
	Debug bool

	// Yolo disables the per-component capability policy: every tool call
	// runs with default-allow network and environment access. Storage
	// access is unaffected, since it has no meaningful "allow everything"
	// equivalent. Off by default; meant for local development only.
	Yolo bool

	// MetricsAddr, when non-empty, is the listen address for the
	// Prometheus /metrics endpoint (for example ":9090"). Left empty, no
	// metrics server is started.
	MetricsAddr string
}

// NewConfig creates a new application configuration.
func NewConfig(pluginDir string, debug, yolo bool, metricsAddr string) *Config {
	return &Config{
		PluginDir:   pluginDir,
		Debug:       debug,
		Yolo:        yolo,
		MetricsAddr: metricsAddr,
	}
}
