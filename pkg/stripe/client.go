package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	EnvTest = "test"
	EnvLive = "live"
)

// keyPrefixes lists the secret and restricted key prefixes Stripe issues per mode.
var keyPrefixes = map[string][]string{
	EnvTest: {"sk_test_", "rk_test_"},
	EnvLive: {"sk_live_", "rk_live_"},
}

var (
	errAPIKeyRequired = errors.New("stripe api key is required")
	errSecretRequired = errors.New("stripe webhook secret is required")
)

// CheckoutDefaults fill currency and redirect URLs a payment request leaves unset.
type CheckoutDefaults struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Client holds validated Stripe credentials for one mode and the API client built
// from them. Callers reach Stripe only through API().
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
	defaults      CheckoutDefaults
}

// NewClient validates cfg and builds the API client. opts are passed to stripe.NewClient.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger, opts ...stripe.ClientOption) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe environment must be %q or %q, got %q", EnvTest, EnvLive, env)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if !hasAnyPrefix(apiKey, prefixes) {
		return nil, fmt.Errorf("stripe %s mode requires a key starting with %s", env, strings.Join(prefixes, " or "))
	}
	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	defaults, err := checkoutDefaults(cfg)
	if err != nil {
		return nil, err
	}

	client := &Client{
		api:           stripe.NewClient(apiKey, opts...),
		environment:   env,
		signingSecret: signingSecret,
		defaults:      defaults,
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_env":       env,
			"stripe_live":      client.Live(),
			"default_currency": defaults.Currency,
		}), "stripe client initialized")
	}
	return client, nil
}

func checkoutDefaults(cfg config.StripeConfig) (CheckoutDefaults, error) {
	defaults := CheckoutDefaults{
		Currency:   strings.ToLower(strings.TrimSpace(cfg.Currency)),
		SuccessURL: strings.TrimSpace(cfg.SuccessURL),
		CancelURL:  strings.TrimSpace(cfg.CancelURL),
	}
	if defaults.Currency != "" && len(defaults.Currency) != 3 {
		return CheckoutDefaults{}, fmt.Errorf("stripe currency %q is not an ISO 4217 code", cfg.Currency)
	}
	for name, raw := range map[string]string{"success": defaults.SuccessURL, "cancel": defaults.CancelURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || !u.IsAbs() || u.Host == "" {
			return CheckoutDefaults{}, fmt.Errorf("stripe %s url %q must be absolute", name, raw)
		}
	}
	return defaults, nil
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Live reports whether real charges are possible.
func (c *Client) Live() bool {
	return c.Environment() == EnvLive
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func (c *Client) Defaults() CheckoutDefaults {
	if c == nil {
		return CheckoutDefaults{}
	}
	return c.defaults
}
