package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "remote-mcp-server",
			Host:        "localhost",
			Port:        3000,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/remote-mcp.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
