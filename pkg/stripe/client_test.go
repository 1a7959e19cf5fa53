package stripe

import (
	"context"
	"testing"

	"github.com/NeuroShelf10/Neuroestante/pkg/config"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
)

func TestNormalizeEnv(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: testEnv},
		{in: "test", want: testEnv},
		{in: " LIVE ", want: liveEnv},
		{in: "staging", wantErr: true},
	}
	for _, tc := range cases {
		got, err := normalizeEnv(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("normalizeEnv(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeEnv(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := validateAPIKey(testEnv, "sk_test_123"); err != nil {
		t.Fatalf("test key in test env should validate: %v", err)
	}
	if err := validateAPIKey(testEnv, "sk_live_123"); err == nil {
		t.Fatal("live key in test env should fail")
	}
	if err := validateAPIKey(liveEnv, "sk_live_123"); err != nil {
		t.Fatalf("live key in live env should validate: %v", err)
	}
	if err := validateAPIKey(liveEnv, "sk_test_123"); err == nil {
		t.Fatal("test key in live env should fail")
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec_x"}, nil)
	if err == nil {
		t.Fatal("expected error when api key missing")
	}

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123"}, nil)
	if err == nil {
		t.Fatal("expected error when webhook secret missing")
	}
}

func TestPriceFor(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:         "sk_test_123",
		Secret:         "whsec_x",
		PriceIDMonthly: "price_month",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	price, err := client.PriceFor(enums.PlanMonthly)
	if err != nil {
		t.Fatalf("PriceFor(monthly): %v", err)
	}
	if price != "price_month" {
		t.Fatalf("PriceFor(monthly) = %q, want price_month", price)
	}

	if _, err := client.PriceFor(enums.PlanYearly); err == nil {
		t.Fatal("expected error for unconfigured yearly price")
	}
}
