package config

// DefaultMaxDepth is how deep below a profile directory the scanner looks
// for database files.
const DefaultMaxDepth = 2

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			MaxDepth:    DefaultMaxDepth,
			ExcludeDirs: DefaultExcludeDirs(),
		},
		Defrag: DefragConfig{
			TempDir: "",
			DryRun:  false,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "~/.config/browser-defrag/history.db",
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
