// ABOUTME: Tests for lookups, authorization helpers, and typed error matching
// ABOUTME: Runs the service against a SQLite store in a temp directory

package shop

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/shopkeeper/internal/store"
)

const (
	admin   = "@admin:example.org"
	alice   = "@alice:example.org"
	bob     = "@bob:example.org"
	panelA  = "!panel-alice:example.org"
	shopA   = "!shop-alice:example.org"
	panelB  = "!panel-bob:example.org"
	shopB   = "!shop-bob:example.org"
	unknown = "@ghost:example.org"
)

// setupTestService creates a Service over a fresh SQLite store with an admin
// and two plain members.
func setupTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	svc := New(s, nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmins(ctx, []string{admin}))
	for _, id := range []string{alice, bob} {
		_, err := svc.RegisterMember(ctx, id, id[1:4], time.Now())
		require.NoError(t, err)
	}
	return svc, s
}

// grantTestAffiliate makes userID an affiliate with the given rooms.
func grantTestAffiliate(t *testing.T, svc *Service, userID, panelID, shopID string) {
	t.Helper()
	_, err := svc.GrantAffiliate(context.Background(), AffiliateGrant{
		UserID:         userID,
		ControlPanelID: panelID,
		ShopID:         shopID,
		ShopName:       userID + "s shop",
	})
	require.NoError(t, err)
}

func TestError_Is(t *testing.T) {
	err := notFound(EntityShop, shopA)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, ErrShopNotFound))
	assert.False(t, errors.Is(err, ErrUserNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))

	wrapped := fmt.Errorf("handling command: %w", err)
	assert.True(t, errors.Is(wrapped, ErrShopNotFound))
	require.NotNil(t, As(wrapped))
	assert.Equal(t, EntityShop, As(wrapped).Entity)

	v := validationError(FieldPrice, "must be a number", nil)
	assert.True(t, errors.Is(v, ErrValidation))
	assert.True(t, errors.Is(v, &Error{Kind: KindValidation, Field: FieldPrice}))
	assert.False(t, errors.Is(v, &Error{Kind: KindValidation, Field: FieldQty}))

	assert.False(t, IsUserFacing(errors.New("disk full")))
	assert.True(t, IsUserFacing(wrapped))
}

func TestService_Lookups(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.GetUser(ctx, unknown)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.GetShop(ctx, shopA)
	assert.ErrorIs(t, err, ErrShopNotFound)

	_, err = svc.GetControlPanel(ctx, alice)
	assert.ErrorIs(t, err, ErrControlPanelNotFound)

	_, err = svc.GetItem(ctx, "$missing", shopA)
	assert.ErrorIs(t, err, ErrItemNotFound)

	grantTestAffiliate(t, svc, alice, panelA, shopA)

	sh, err := svc.GetShop(ctx, shopA)
	require.NoError(t, err)
	assert.Equal(t, alice, sh.OwnerID)

	p, err := svc.GetControlPanel(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, panelA, p.ID)
}

func TestService_FindUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	u, err := svc.FindUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, u.ID)

	u, err = svc.FindUser(ctx, " bob ")
	require.NoError(t, err)
	assert.Equal(t, bob, u.ID)

	_, err = svc.FindUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.FindUser(ctx, unknown)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_CheckAdmin(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   string
		target  string
		grant   bool
		allowed bool
	}{
		{"admin grants other", admin, alice, true, true},
		{"admin revokes other", admin, alice, false, true},
		{"admin grants self", admin, admin, true, true},
		{"admin revokes self", admin, admin, false, false},
		{"member grants other", alice, bob, true, false},
		{"member revokes other", alice, bob, false, false},
		{"unknown actor", unknown, alice, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckAdmin(ctx, tt.actor, tt.target, tt.grant)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrPermissionDenied)
		})
	}
}

func TestService_RequireInControlPanel(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	grantTestAffiliate(t, svc, alice, panelA, shopA)
	grantTestAffiliate(t, svc, bob, panelB, shopB)

	assert.NoError(t, svc.RequireInControlPanel(ctx, alice, panelA))
	assert.ErrorIs(t, svc.RequireInControlPanel(ctx, alice, panelB), ErrNotInControlPanel)
	assert.ErrorIs(t, svc.RequireInControlPanel(ctx, alice, shopA), ErrNotInControlPanel)
	assert.ErrorIs(t, svc.RequireInControlPanel(ctx, admin, panelA), ErrNotInControlPanel)
}

func TestService_RequireOwnsShop(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.RequireOwnsShop(ctx, alice)
	assert.ErrorIs(t, err, ErrShopNotFound)

	grantTestAffiliate(t, svc, alice, panelA, shopA)

	shopID, err := svc.RequireOwnsShop(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, shopA, shopID)
}

func TestService_Record(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	svc.Record(ctx, admin, store.AuditGrantAffiliate, "user", alice, map[string]any{"shop": shopA})

	entries, err := svc.AuditLog(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, admin, entries[0].ActorID)
	assert.Equal(t, store.AuditGrantAffiliate, entries[0].Action)
}
