// ABOUTME: Authorization checks for admin commands and control panel scoped commands
// ABOUTME: CheckAdmin, RequireInControlPanel, RequireOwnsShop

package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/shopkeeper/internal/store"
)

// CheckAdmin fails with PermissionDenied unless actorID is a known admin.
// When grant is false and the target is the actor, it also fails: an admin
// cannot remove their own admin flag.
func (s *Service) CheckAdmin(ctx context.Context, actorID, targetID string, grant bool) error {
	actor, err := s.store.GetUser(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return permissionDenied(actorID, "not a registered member")
	}
	if err != nil {
		return fmt.Errorf("loading actor %s: %w", actorID, err)
	}
	if !actor.Admin {
		return permissionDenied(actorID, "admin required")
	}
	if !grant && targetID == actorID {
		return permissionDenied(actorID, "cannot revoke own admin status")
	}
	return nil
}

// RequireInControlPanel fails with NotInControlPanel unless roomID is the
// control panel owned by actorID.
func (s *Service) RequireInControlPanel(ctx context.Context, actorID, roomID string) error {
	panel, err := s.store.GetControlPanel(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotInControlPanel, Message: fmt.Sprintf("%s is not a control panel", roomID)}
	}
	if err != nil {
		return fmt.Errorf("loading control panel %s: %w", roomID, err)
	}
	if panel.OwnerID != actorID {
		return &Error{Kind: KindNotInControlPanel, Message: fmt.Sprintf("%s does not own %s", actorID, roomID)}
	}
	return nil
}

// RequireOwnsShop returns the id of the shop actorID owns, or ShopNotFound.
func (s *Service) RequireOwnsShop(ctx context.Context, actorID string) (string, error) {
	sh, err := s.GetShopByOwner(ctx, actorID)
	if err != nil {
		return "", err
	}
	return sh.ID, nil
}
