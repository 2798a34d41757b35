package config

import "os"

// KeySource represents where a credential comes from.
type KeySource string

const (
	KeySourceEnv    KeySource = "env"
	KeySourceConfig KeySource = "config"
	KeySourceNone   KeySource = "none"
)

// KeyStatus represents the status of a credential or secret.
type KeyStatus struct {
	Name   string    `json:"name"`
	EnvVar string    `json:"env_var"`
	Source KeySource `json:"source"`
	IsSet  bool      `json:"is_set"`
	Masked string    `json:"masked,omitempty"` // e.g., "abc...xyz"
}

// CheckKeys returns the status of every credential the service needs.
// Values are never returned in clear text.
func CheckKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("HotelRunner Token", cfg.HotelRunner.Token, "HOTELRUNNER_TOKEN"),
		checkKey("HotelRunner HR ID", cfg.HotelRunner.HRID, "HR_ID", "HOTELRUNNER_HR_ID", "HOTELRUNNER_ID"),
		checkKey("Tool Secret", cfg.Tool.Secret, "TOOL_SECRET"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:   name,
		EnvVar: envVars[0],
		IsSet:  value != "",
		Source: KeySourceNone,
	}
	if value == "" {
		return status
	}

	status.Source = KeySourceConfig
	for _, ev := range envVars {
		if os.Getenv(ev) != "" {
			status.Source = KeySourceEnv
			status.EnvVar = ev
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks a secret for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
