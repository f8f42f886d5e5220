// Package payment fronts the external payment gateway behind a small
// provider interface so the gateway can be swapped per environment.
package payment

import (
	"context"

	"github.com/amarastays/backend-villa/internal/pricing"
)

// IntentRequest describes the charge a guest is about to authorize.
type IntentRequest struct {
	BookingID string
	Amount    pricing.Money
	Currency  string
	Email     string
}

// Intent is the provider's handle for a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       pricing.Money
	Currency     string
	Status       string
}

// Provider creates payment intents with an external gateway.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}
