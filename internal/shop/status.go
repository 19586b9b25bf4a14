// ABOUTME: Shop status (open/closed) transitions and shop sign tracking
// ABOUTME: Setting the current status again is reported as a no-op error

package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/shopkeeper/internal/store"
)

// ParseShopStatus accepts "open", "close" or "closed" in any case.
func ParseShopStatus(raw string) (store.ShopStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open":
		return store.ShopOpen, nil
	case "close", "closed":
		return store.ShopClosed, nil
	}
	return "", invalidResponse(raw, "open or close")
}

// SetShopStatus moves a shop to status. Fails with ShopNotFound for unknown
// shops and NoOpStatusChange when the shop is already in that status.
func (s *Service) SetShopStatus(ctx context.Context, shopID string, status store.ShopStatus) (*store.Shop, error) {
	if !status.IsValid() {
		return nil, invalidResponse(string(status), "open or close")
	}

	sh, err := s.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if sh.Status == status {
		return nil, &Error{Kind: KindNoOpStatusChange, Message: fmt.Sprintf("shop is already %s", status)}
	}

	if err := s.store.SetShopStatus(ctx, shopID, status); err != nil {
		return nil, mapNotFound(err, EntityShop, shopID)
	}
	sh.Status = status

	s.logger.Info("set shop status", "shop", shopID, "status", status)
	return sh, nil
}

// SetShopSign records eventID as the shop's sign and returns the previous
// sign id, nil if there was none.
func (s *Service) SetShopSign(ctx context.Context, shopID, eventID string) (*string, error) {
	sh, err := s.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetShopSign(ctx, shopID, eventID); err != nil {
		return nil, mapNotFound(err, EntityShop, shopID)
	}

	s.logger.Debug("set shop sign", "shop", shopID, "sign", eventID)
	return sh.SignID, nil
}
