package config

import (
	"os"
	"path/filepath"
	"time"
)

// ClientConfig configures the taskflow CLI.
type ClientConfig struct {
	APIURL        string
	SessionFile   string
	// SessionSecret, when set, seals the session file at rest.
	SessionSecret string
	Timeout       time.Duration
}

// LoadClientConfig constructs a ClientConfig from environment variables.
func LoadClientConfig() ClientConfig {
	return ClientConfig{
		APIURL:        GetString("TASKFLOW_API_URL", "http://localhost:5000"),
		SessionFile:   GetString("TASKFLOW_SESSION_FILE", defaultSessionFile()),
		SessionSecret: GetString("TASKFLOW_SESSION_SECRET", ""),
		Timeout:       GetDuration("TASKFLOW_TIMEOUT", 15*time.Second),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".taskflow-session.json"
	}
	return filepath.Join(dir, "taskflow", "session.json")
}
