// ABOUTME: Affiliate lifecycle: granting a user a control panel and shop, and revoking them
// ABOUTME: Changes for one user are serialized; revoke is best effort and idempotent

package shop

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/2389/shopkeeper/internal/store"
)

// AffiliateGrant describes the resources created for a new affiliate.
// The room ids come from the chat platform, which creates the rooms first.
type AffiliateGrant struct {
	UserID          string
	ControlPanelID  string
	ShopID          string
	ShopName        string
	ShopDescription string
}

// Revoked reports which resources RevokeAffiliate removed.
// Empty ids mean the resource did not exist.
type Revoked struct {
	ControlPanelID string
	ShopID         string
}

// Any reports whether anything was removed.
func (r Revoked) Any() bool {
	return r.ControlPanelID != "" || r.ShopID != ""
}

// IsAffiliated reports whether the user owns a shop or a control panel.
func (s *Service) IsAffiliated(ctx context.Context, userID string) (bool, error) {
	if _, err := s.store.GetShopByOwner(ctx, userID); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("checking shop for %s: %w", userID, err)
	}

	if _, err := s.store.GetControlPanelByOwner(ctx, userID); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("checking control panel for %s: %w", userID, err)
	}

	return false, nil
}

// GrantAffiliate records a control panel and a closed shop for the user.
// Fails with UserNotFound for unknown users and AlreadyAffiliated when the
// user already owns either resource; nothing is written in that case.
func (s *Service) GrantAffiliate(ctx context.Context, g AffiliateGrant) (*store.Shop, error) {
	s.locks.Lock(g.UserID)
	defer s.locks.Unlock(g.UserID)

	if _, err := s.GetUser(ctx, g.UserID); err != nil {
		return nil, err
	}

	affiliated, err := s.IsAffiliated(ctx, g.UserID)
	if err != nil {
		return nil, err
	}
	if affiliated {
		return nil, alreadyExists(EntityAffiliate, g.UserID)
	}

	panel := &store.ControlPanel{ID: g.ControlPanelID, OwnerID: g.UserID}
	sh := &store.Shop{
		ID:          g.ShopID,
		OwnerID:     g.UserID,
		Name:        g.ShopName,
		Description: g.ShopDescription,
		Status:      store.ShopClosed,
	}

	if err := s.store.CreateAffiliate(ctx, panel, sh); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			e := alreadyExists(EntityAffiliate, g.UserID)
			e.cause = err
			return nil, e
		}
		return nil, fmt.Errorf("creating affiliate %s: %w", g.UserID, err)
	}

	s.logger.Info("granted affiliate", "user", g.UserID, "shop", sh.ID, "control_panel", panel.ID)
	return sh, nil
}

// RevokeAffiliate removes the user's control panel and shop (with its items).
// Each removal is attempted even if the other fails; missing resources are
// not errors, so revoking twice is harmless.
func (s *Service) RevokeAffiliate(ctx context.Context, userID string) (Revoked, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var revoked Revoked
	var errs error

	panel, err := s.store.GetControlPanelByOwner(ctx, userID)
	switch {
	case err == nil:
		if err := s.store.DeleteControlPanel(ctx, panel.ID); err == nil {
			revoked.ControlPanelID = panel.ID
		} else if !errors.Is(err, store.ErrNotFound) {
			errs = multierr.Append(errs, fmt.Errorf("deleting control panel %s: %w", panel.ID, err))
		}
	case !errors.Is(err, store.ErrNotFound):
		errs = multierr.Append(errs, fmt.Errorf("loading control panel for %s: %w", userID, err))
	}

	sh, err := s.store.GetShopByOwner(ctx, userID)
	switch {
	case err == nil:
		if err := s.store.DeleteShop(ctx, sh.ID); err == nil {
			revoked.ShopID = sh.ID
		} else if !errors.Is(err, store.ErrNotFound) {
			errs = multierr.Append(errs, fmt.Errorf("deleting shop %s: %w", sh.ID, err))
		}
	case !errors.Is(err, store.ErrNotFound):
		errs = multierr.Append(errs, fmt.Errorf("loading shop for %s: %w", userID, err))
	}

	if revoked.Any() {
		s.logger.Info("revoked affiliate", "user", userID, "shop", revoked.ShopID, "control_panel", revoked.ControlPanelID)
	}
	return revoked, errs
}
