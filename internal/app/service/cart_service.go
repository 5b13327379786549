package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/repository"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
)

var (
	ErrProductNotFound = errors.New("product id not found")
	ErrAlreadyHydrated = errors.New("cart already hydrated")
)

// Mutation is the synchronous result of a cart operation: the cart as it is
// after the change, and the background write that mirrors it to storage.
type Mutation struct {
	Products []model.CartItem
	Persist  *PersistTask
}

// Listener receives a snapshot after every mutation. Listeners run on the
// mutating goroutine and must not mutate the cart themselves.
type Listener func(products []model.CartItem)

// StoreStatus is a point-in-time view used by health checks and audits.
type StoreStatus struct {
	Hydrated         bool   `json:"hydrated"`
	HydrateError     string `json:"hydrate_error,omitempty"`
	Items            int    `json:"items"`
	Version          uint64 `json:"version"`
	PersistedVersion uint64 `json:"persisted_version"`
	PendingWrites    int    `json:"pending_writes"`
	LastPersistError string `json:"last_persist_error,omitempty"`
}

type CartService interface {
	Hydrate(ctx context.Context) error
	Products() []model.CartItem
	AddToCart(product model.Product) *Mutation
	Increment(id string) (*Mutation, error)
	Decrement(id string) (*Mutation, error)
	Subscribe(fn Listener) (unsubscribe func())
	Sync() *PersistTask
	Flush(ctx context.Context) error
	Status() StoreStatus
}

type cartService struct {
	repo   repository.CartRepository
	writer *persister

	mu         sync.Mutex
	products   []model.CartItem
	version    uint64
	started    bool
	hydrateErr error

	// notifyMu keeps listener calls in mutation order.
	notifyMu     sync.Mutex
	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

// NewCartService creates an empty cart mirrored through repo. persistTimeout
// bounds each background write; zero means the default of five seconds.
func NewCartService(repo repository.CartRepository, persistTimeout time.Duration) CartService {
	return &cartService{
		repo:      repo,
		writer:    newPersister(repo, persistTimeout),
		products:  []model.CartItem{},
		listeners: make(map[int]Listener),
	}
}

// Hydrate adopts the persisted cart. It runs at most once and must come before
// the first mutation; a missing value leaves the cart empty. If the cart
// changes while the load is in flight the loaded items are dropped and
// ErrAlreadyHydrated is returned.
func (s *cartService) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyHydrated
	}
	s.started = true
	startVersion := s.version
	s.mu.Unlock()

	logger.Info("Hydrating cart from storage", map[string]interface{}{
		"key": s.repo.Key(),
	})

	items, found, err := s.repo.Load(ctx)
	if err != nil {
		err = fmt.Errorf("hydrate cart: %w", err)
		s.mu.Lock()
		s.hydrateErr = err
		s.mu.Unlock()
		logger.Error("Failed to hydrate cart", err, map[string]interface{}{
			"key": s.repo.Key(),
		})
		return err
	}
	if !found {
		logger.Info("No persisted cart, starting empty", nil)
		return nil
	}

	s.mu.Lock()
	// a mutation ran while loading; live state wins over the stored cart
	if s.version != startVersion {
		current := s.version
		s.mu.Unlock()
		logger.Warn("Discarding hydrated cart, cart changed during load", map[string]interface{}{
			"loaded_count": len(items),
			"version":      current,
		})
		return ErrAlreadyHydrated
	}
	s.products = items
	snapshot := model.CloneItems(s.products)
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.notify(snapshot)
	s.notifyMu.Unlock()

	logger.Info("Cart hydrated", map[string]interface{}{
		"count": len(items),
	})
	return nil
}

func (s *cartService) Products() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneItems(s.products)
}

// AddToCart bumps the quantity of an existing line (keeping its stored fields)
// or appends a new line with quantity 1.
func (s *cartService) AddToCart(product model.Product) *Mutation {
	return s.mutate(func(items []model.CartItem) ([]model.CartItem, error) {
		if idx := model.IndexOf(items, product.ID); idx >= 0 {
			items[idx].Quantity++
			logger.Debug("Incremented existing cart line", map[string]interface{}{
				"product_id": product.ID,
				"quantity":   items[idx].Quantity,
			})
			return items, nil
		}
		logger.Debug("Appended new cart line", map[string]interface{}{
			"product_id": product.ID,
		})
		return append(items, model.NewCartItem(product)), nil
	}, "add", product.ID)
}

func (s *cartService) Increment(id string) (*Mutation, error) {
	return s.mutateOrFail(func(items []model.CartItem) ([]model.CartItem, error) {
		idx := model.IndexOf(items, id)
		if idx < 0 {
			return nil, ErrProductNotFound
		}
		items[idx].Quantity++
		return items, nil
	}, "increment", id)
}

// Decrement lowers the quantity by one and drops the line once it would reach zero.
func (s *cartService) Decrement(id string) (*Mutation, error) {
	return s.mutateOrFail(func(items []model.CartItem) ([]model.CartItem, error) {
		idx := model.IndexOf(items, id)
		if idx < 0 {
			return nil, ErrProductNotFound
		}
		if items[idx].Quantity > 1 {
			items[idx].Quantity--
			return items, nil
		}
		return append(items[:idx], items[idx+1:]...), nil
	}, "decrement", id)
}

func (s *cartService) mutate(apply func([]model.CartItem) ([]model.CartItem, error), op, id string) *Mutation {
	m, _ := s.mutateOrFail(apply, op, id)
	return m
}

// mutateOrFail applies a change to a private copy of the cart, swaps it in,
// notifies listeners and schedules the background write.
func (s *cartService) mutateOrFail(apply func([]model.CartItem) ([]model.CartItem, error), op, id string) (*Mutation, error) {
	s.mu.Lock()
	next, err := apply(model.CloneItems(s.products))
	if err != nil {
		s.mu.Unlock()
		logger.Warn("Cart operation rejected", map[string]interface{}{
			"operation":  op,
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.started = true
	s.products = next
	s.version++
	snapshot := model.CloneItems(next)
	task := s.writer.schedule(s.version, model.CloneItems(next))

	s.notifyMu.Lock()
	s.mu.Unlock()
	s.notify(snapshot)
	s.notifyMu.Unlock()

	logger.Info("Cart updated", map[string]interface{}{
		"operation":  op,
		"product_id": id,
		"count":      len(snapshot),
		"version":    task.Version(),
	})
	return &Mutation{Products: snapshot, Persist: task}, nil
}

// Subscribe registers fn for snapshots after each mutation.
func (s *cartService) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *cartService) notify(snapshot []model.CartItem) {
	s.listenersMu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(model.CloneItems(snapshot))
	}
}

// Sync writes the current cart again under a fresh version without changing it.
func (s *cartService) Sync() *PersistTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	logger.Info("Re-persisting cart", map[string]interface{}{
		"version": s.version,
		"count":   len(s.products),
	})
	return s.writer.schedule(s.version, model.CloneItems(s.products))
}

// Flush waits for all scheduled writes.
func (s *cartService) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

func (s *cartService) Status() StoreStatus {
	s.mu.Lock()
	status := StoreStatus{
		Hydrated: s.started && s.hydrateErr == nil,
		Items:    len(s.products),
		Version:  s.version,
	}
	if s.hydrateErr != nil {
		status.HydrateError = s.hydrateErr.Error()
	}
	s.mu.Unlock()

	written, lastErr := s.writer.state()
	status.PersistedVersion = written
	status.PendingWrites = s.writer.inFlight()
	if lastErr != nil {
		status.LastPersistError = lastErr.Error()
	}
	return status
}
