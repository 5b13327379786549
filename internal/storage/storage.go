// Package storage holds the key-value backends the cart is persisted to.
//
// Every backend replaces the whole value on SetItem; there are no partial or
// merge writes. A missing key is reported as found == false, never as an error.
package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyKey = errors.New("storage key is required")

// KeyValueStore is the asynchronous key-value facility the cart mirrors itself into.
type KeyValueStore interface {
	GetItem(ctx context.Context, key string) (value string, found bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
