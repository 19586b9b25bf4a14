// ABOUTME: Lobby membership and admin flag management
// ABOUTME: RegisterMember, RemoveMember, SetAdminStatus, and config-driven admin bootstrap

package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/shopkeeper/internal/store"
)

// ParseBool accepts "true" or "false" in any case.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, invalidResponse(raw, "true or false")
}

// RegisterMember records a user who joined the lobby.
func (s *Service) RegisterMember(ctx context.Context, userID, displayName string, joinedAt time.Time) (*store.User, error) {
	u := &store.User{
		ID:          userID,
		DisplayName: displayName,
		JoinedAt:    joinedAt,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			e := alreadyExists(EntityUser, userID)
			e.cause = err
			return nil, e
		}
		return nil, fmt.Errorf("registering member %s: %w", userID, err)
	}

	s.logger.Info("registered member", "user", userID, "name", displayName)
	return u, nil
}

// RemoveMember deletes a user who left the lobby.
func (s *Service) RemoveMember(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return mapNotFound(err, EntityUser, userID)
	}
	s.logger.Info("removed member", "user", userID)
	return nil
}

// SetAdminStatus sets the target's admin flag from a "true"/"false" argument.
// Checks run in order: actor permission, target existence, argument validity.
func (s *Service) SetAdminStatus(ctx context.Context, actorID, targetID, raw string) (*store.User, error) {
	admin, parseErr := ParseBool(raw)

	// A malformed argument is never a self-revoke.
	if err := s.CheckAdmin(ctx, actorID, targetID, parseErr != nil || admin); err != nil {
		return nil, err
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}

	if err := s.store.SetAdmin(ctx, targetID, admin); err != nil {
		return nil, mapNotFound(err, EntityUser, targetID)
	}
	target.Admin = admin

	s.logger.Info("set admin status", "actor", actorID, "user", targetID, "admin", admin)
	return target, nil
}

// EnsureAdmins makes sure every listed user exists and is an admin.
// Used at startup so a fresh database has someone who can grant affiliates.
func (s *Service) EnsureAdmins(ctx context.Context, userIDs []string) error {
	for _, id := range userIDs {
		u, err := s.store.GetUser(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			u = &store.User{ID: id, DisplayName: id, Admin: true}
			if err := s.store.CreateUser(ctx, u); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("creating admin %s: %w", id, err)
			}
			if err := s.store.SetAdmin(ctx, id, true); err != nil {
				return fmt.Errorf("promoting admin %s: %w", id, err)
			}
		case err != nil:
			return fmt.Errorf("loading admin %s: %w", id, err)
		case !u.Admin:
			if err := s.store.SetAdmin(ctx, id, true); err != nil {
				return fmt.Errorf("promoting admin %s: %w", id, err)
			}
		default:
			continue
		}
		s.logger.Info("bootstrapped admin", "user", id)
	}

	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	if len(admins) == 0 {
		s.logger.Warn("no admins configured; admin commands are unavailable")
		return nil
	}
	ids := make([]string, len(admins))
	for i, u := range admins {
		ids[i] = u.ID
	}
	s.logger.Info("admins", "users", ids)
	return nil
}
