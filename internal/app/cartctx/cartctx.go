// Package cartctx scopes a cart store to a context. WithCart plays the
// provider, FromContext the consumer.
package cartctx

import (
	"context"

	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
)

// ConfigurationError reports that the cart was requested outside a provider scope.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// ErrNoProvider is returned by FromContext when no store was installed.
var ErrNoProvider error = &ConfigurationError{Message: "cart must be used within a cart provider"}

// Cart is the consumer view of the store.
type Cart interface {
	Products() []model.CartItem
	AddToCart(product model.Product) *service.Mutation
	Increment(id string) (*service.Mutation, error)
	Decrement(id string) (*service.Mutation, error)
}

type cartKey struct{}

// WithCart returns a copy of ctx carrying store.
func WithCart(ctx context.Context, store service.CartService) context.Context {
	return context.WithValue(ctx, cartKey{}, store)
}

// FromContext returns the cart installed by WithCart, or ErrNoProvider.
func FromContext(ctx context.Context) (Cart, error) {
	store, err := StoreFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// StoreFromContext is FromContext for callers that also need Subscribe, Sync or Status.
func StoreFromContext(ctx context.Context) (service.CartService, error) {
	if ctx == nil {
		return nil, ErrNoProvider
	}
	store, ok := ctx.Value(cartKey{}).(service.CartService)
	if !ok || store == nil {
		return nil, ErrNoProvider
	}
	return store, nil
}
