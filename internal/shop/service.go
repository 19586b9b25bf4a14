// ABOUTME: Service is the shop core: lookups over the store that map misses to typed errors
// ABOUTME: Authorization, lifecycle, items, status, and users are methods on it in sibling files

package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moby/locker"

	"github.com/2389/shopkeeper/internal/store"
)

// Service implements the affiliate shop operations on top of a Store.
type Service struct {
	store  store.Store
	logger *slog.Logger
	locks  *locker.Locker // per user, held across affiliate grant and revoke
}

// New creates a Service. A nil logger uses slog.Default.
func New(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		logger: logger.With("component", "shop"),
		locks:  locker.New(),
	}
}

// Store returns the underlying store.
func (s *Service) Store() store.Store {
	return s.store
}

// GetUser returns the user or UserNotFound.
func (s *Service) GetUser(ctx context.Context, userID string) (*store.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, EntityUser, userID)
	}
	return u, nil
}

// FindUser resolves a command argument to a user. Arguments starting with
// "@" are user ids; anything else is matched against display names.
func (s *Service) FindUser(ctx context.Context, ref string) (*store.User, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "@") {
		return s.GetUser(ctx, ref)
	}
	u, err := s.store.GetUserByName(ctx, ref)
	if err != nil {
		return nil, mapNotFound(err, EntityUser, ref)
	}
	return u, nil
}

// GetShop returns the shop or ShopNotFound.
func (s *Service) GetShop(ctx context.Context, shopID string) (*store.Shop, error) {
	sh, err := s.store.GetShop(ctx, shopID)
	if err != nil {
		return nil, mapNotFound(err, EntityShop, shopID)
	}
	return sh, nil
}

// GetShopByOwner returns the shop a user owns or ShopNotFound.
func (s *Service) GetShopByOwner(ctx context.Context, ownerID string) (*store.Shop, error) {
	sh, err := s.store.GetShopByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapNotFound(err, EntityShop, ownerID)
	}
	return sh, nil
}

// GetItem returns the item listed in shopID or ItemNotFound.
func (s *Service) GetItem(ctx context.Context, itemID, shopID string) (*store.Item, error) {
	item, err := s.store.GetItem(ctx, itemID, shopID)
	if err != nil {
		return nil, mapNotFound(err, EntityItem, itemID)
	}
	return item, nil
}

// GetControlPanel returns the control panel owned by a user or ControlPanelNotFound.
func (s *Service) GetControlPanel(ctx context.Context, ownerID string) (*store.ControlPanel, error) {
	p, err := s.store.GetControlPanelByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapNotFound(err, EntityControlPanel, ownerID)
	}
	return p, nil
}

// mapNotFound turns store.ErrNotFound into the entity's typed error and wraps
// anything else as an internal failure.
func mapNotFound(err error, entity Entity, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		e := notFound(entity, id)
		e.cause = err
		return e
	}
	return fmt.Errorf("loading %s %s: %w", entity, id, err)
}
