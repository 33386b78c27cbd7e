package payment

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("payment processor not configured")

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Metadata     map[string]string
}

func (i *Intent) Succeeded() bool {
	return i.Status == StatusSucceeded
}

const StatusSucceeded = "succeeded"

// Processor is the external payment provider.
type Processor interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// Disabled rejects every call. It stands in when no provider key is set.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, int64, string, map[string]string) (*Intent, error) {
	return nil, ErrNotConfigured
}

func (Disabled) GetIntent(context.Context, string) (*Intent, error) {
	return nil, ErrNotConfigured
}
