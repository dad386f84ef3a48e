package stripe

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestNewClientValidatesKeysForEnvironment(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{"test key in test env", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1"}, false},
		{"restricted live key", config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec_1", Env: "LIVE"}, false},
		{"live key in test env", config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1"}, true},
		{"missing key", config.StripeConfig{Secret: "whsec_1"}, true},
		{"missing secret", config.StripeConfig{APIKey: "sk_test_123"}, true},
		{"unknown env", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(ctx, tc.cfg, nil)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewClientNormalizesDefaults(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:     "sk_test_123",
		Secret:     " whsec_1 ",
		Currency:   " EUR ",
		SuccessURL: "https://shop.example/ok ",
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.SigningSecret() != "whsec_1" {
		t.Fatalf("unexpected secret %q", client.SigningSecret())
	}
	if client.Environment() != "test" {
		t.Fatalf("unexpected env %q", client.Environment())
	}
	defaults := client.Defaults()
	if defaults.Currency != "eur" || defaults.SuccessURL != "https://shop.example/ok" {
		t.Fatalf("unexpected defaults %+v", defaults)
	}
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	if client.SigningSecret() != "" || client.API() != nil || client.Defaults() != (CheckoutDefaults{}) {
		t.Fatal("nil client should return zero values")
	}
}

func TestNewClientValidatesCheckoutDefaults(t *testing.T) {
	base := config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1"}

	bad := base
	bad.Currency = "euro"
	if _, err := NewClient(context.Background(), bad, nil); err == nil {
		t.Fatal("expected currency error")
	}

	bad = base
	bad.CancelURL = "/cart"
	if _, err := NewClient(context.Background(), bad, nil); err == nil {
		t.Fatal("expected relative url error")
	}

	live := config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec_1", Env: "live"}
	client, err := NewClient(context.Background(), live, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if !client.Live() {
		t.Fatal("expected live mode")
	}
}
