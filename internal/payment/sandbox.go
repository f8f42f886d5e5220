package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Sandbox is the development provider: every intent succeeds immediately
// and no money moves anywhere.
type Sandbox struct{}

func NewSandbox() *Sandbox { return &Sandbox{} }

func (*Sandbox) Name() string { return "sandbox" }

func (*Sandbox) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	if req.Amount <= 0 {
		return Intent{}, fmt.Errorf("sandbox: amount must be positive, got %d", req.Amount)
	}
	return Intent{
		ID:           "pi_sandbox_" + randomHex(12),
		ClientSecret: "secret_" + randomHex(24),
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       "requires_confirmation",
	}, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
