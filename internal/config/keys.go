package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "AIz...x9Q"
}

// CheckAPIKeys returns the status of every credential stocksense can use.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Google Search Key", cfg.Search.Google.Key, EnvPrefix+"_SEARCH_GOOGLE_KEY"),
		checkKey("Google Search CX", cfg.Search.Google.CX, EnvPrefix+"_SEARCH_GOOGLE_CX"),
		checkKey("Finnhub API Key", cfg.Finance.FinnhubKey, EnvPrefix+"_FINANCE_FINNHUB_KEY"),
		checkKey("News API Key", cfg.News.APIKey, EnvPrefix+"_NEWS_API_KEY"),
		checkKey("Sentiment API Key", cfg.Sentiment.APIKey, EnvPrefix+"_SENTIMENT_API_KEY"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value != "" {
		if os.Getenv(envVar) != "" {
			status.Source = KeySourceEnv
		} else {
			status.Source = KeySourceConfig
		}
		status.Masked = maskKey(value)
	} else {
		status.Source = KeySourceNone
	}

	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
