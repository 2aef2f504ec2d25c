// Package config loads and validates the Engage client configuration.
package config

// Config is the root configuration for the Engage client.
type Config struct {
	Backend  BackendConfig  `yaml:"backend,omitempty"`
	Missions MissionsConfig `yaml:"missions,omitempty"`
	Track    TrackConfig    `yaml:"track,omitempty"`
	Storage  StorageConfig  `yaml:"storage,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// BackendConfig points the client at the personalization backend.
type BackendConfig struct {
	BaseURL        string `yaml:"baseUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// MissionsConfig controls mission completion gates.
type MissionsConfig struct {
	RequiredSeconds RequiredSecondsConfig `yaml:"requiredSeconds,omitempty"`
}

// RequiredSecondsConfig holds per-mission-type time gates. The gates differ
// by type, so they are configured separately rather than as one constant.
type RequiredSecondsConfig struct {
	ReadCaseStudy int `yaml:"readCaseStudy,omitempty"`
	ViewProcess   int `yaml:"viewProcess,omitempty"`
	VapiCall      int `yaml:"vapiCall,omitempty"`
}

// TrackConfig configures the visibility event feed.
type TrackConfig struct {
	// FeedURL is the websocket endpoint that delivers visible/hidden region
	// events from the embedding surface. Empty disables the feed.
	FeedURL string `yaml:"feedUrl,omitempty"`
}

// StorageConfig controls durable client storage.
type StorageConfig struct {
	// Path to the sqlite database. Empty uses Paths.Database.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:3000",
			TimeoutSeconds: 30,
		},
		Missions: MissionsConfig{
			RequiredSeconds: RequiredSecondsConfig{
				ReadCaseStudy: 30,
				ViewProcess:   30,
				VapiCall:      45,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
