package auth

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ServiceID identifies tokens minted by this deployment.
const ServiceID = "flexio"

// DefaultReturnURL is used when the caller supplies no return_url, or
// supplies one that fails validation.
const DefaultReturnURL = "/dashboard"

// Config holds the bbauth provider settings and the frontend redirect base.
type Config struct {
	// ProviderURL is the bbauth provider root, e.g. https://bbauth.example.
	// Login is unavailable (503) until both it and ClientID are set.
	ProviderURL  string `env:"BBAUTH_PROVIDER_URL"`
	ClientID     string `env:"BBAUTH_CLIENT_ID"`
	ClientSecret string `env:"BBAUTH_CLIENT_SECRET"`
	RedirectURI  string `env:"BBAUTH_REDIRECT_URI"`
	Scope        string `env:"BBAUTH_SCOPE" envDefault:"email"`

	// FrontendURL is the base the post-login redirect resolves against.
	FrontendURL string `env:"ISSUER_URL" envDefault:"http://localhost:5173"`

	// ReturnURLHosts is the extra allowlist for absolute return URLs; the
	// FrontendURL host is always allowed.
	ReturnURLHosts []string `env:"BBAUTH_RETURN_URL_HOSTS" envSeparator:","`

	// ServiceTokenSecret signs issued service tokens.
	ServiceTokenSecret string `env:"SERVICE_TOKEN_SECRET"`
}

// LoadConfigFromEnv reads the configuration from environment variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("auth: parse env: %w", err)
	}
	return cfg, nil
}

// ProviderConfigured reports whether enough provider settings are present
// to start a login.
func (c Config) ProviderConfigured() bool {
	return c.ProviderURL != "" && c.ClientID != ""
}
