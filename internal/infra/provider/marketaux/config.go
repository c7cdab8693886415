package marketaux

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DefaultBaseURL is the public Marketaux v1 API root.
const DefaultBaseURL = "https://api.marketaux.com/v1/"

// Config holds the Marketaux client settings.
type Config struct {
	BaseURL  string
	APIToken string
	Language string        // language filter, empty disables it
	Limit    int           // articles per request, 0 leaves the plan default
	Timeout  time.Duration // per attempt HTTP timeout
	// RatePerSecond paces outgoing calls when > 0.
	RatePerSecond float64
}

// DefaultConfig returns defaults for everything except the token.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Language: "en",
		Timeout:  10 * time.Second,
	}
}

// Validate checks that the client can build requests.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("marketaux: base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("marketaux: invalid base url %q", c.BaseURL)
	}
	if c.APIToken == "" {
		return errors.New("marketaux: api token is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("marketaux: timeout must be positive, got %v", c.Timeout)
	}
	if c.Limit < 0 {
		return fmt.Errorf("marketaux: limit must not be negative, got %d", c.Limit)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("marketaux: rate must not be negative, got %v", c.RatePerSecond)
	}
	return nil
}
