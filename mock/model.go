// Package mock provides test doubles for toolchat interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/toolchat"
)

// Interface compliance check.
var _ toolchat.Model = (*Model)(nil)

// Model is a test double for toolchat.Model.
// Set GenerateFn before calling Generate.
type Model struct {
	GenerateFn func(ctx context.Context, req toolchat.Request) (*toolchat.Response, error)
}

// Generate delegates to GenerateFn.
func (m *Model) Generate(ctx context.Context, req toolchat.Request) (*toolchat.Response, error) {
	return m.GenerateFn(ctx, req)
}
