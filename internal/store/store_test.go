// ABOUTME: Tests for user, control panel, and shop store operations
// ABOUTME: Covers CRUD, owner uniqueness, paired affiliate creation, and shop deletion cascade

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a SQLite store in a temporary directory for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// createTestAffiliate stores a panel and shop owned by ownerID.
func createTestAffiliate(t *testing.T, s Store, ownerID, panelID, shopID string) {
	t.Helper()
	err := s.CreateAffiliate(context.Background(),
		&ControlPanel{ID: panelID, OwnerID: ownerID},
		&Shop{ID: shopID, OwnerID: ownerID, Name: "Test Shop"},
	)
	require.NoError(t, err)
}

func TestStore_CreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	email := "alice@example.org"
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	user := &User{
		ID:          "@alice:example.org",
		DisplayName: "alice",
		Email:       &email,
		Rank:        2,
		JoinedAt:    joined,
	}
	require.NoError(t, store.CreateUser(ctx, user))

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.DisplayName)
	require.NotNil(t, got.Email)
	assert.Equal(t, email, *got.Email)
	assert.False(t, got.Admin)
	assert.Equal(t, 2, got.Rank)
	assert.True(t, joined.Equal(got.JoinedAt))
}

func TestStore_CreateUser_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &User{ID: "@alice:example.org", DisplayName: "alice"}))
	err := store.CreateUser(ctx, &User{ID: "@alice:example.org", DisplayName: "alice again"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestStore_GetUser_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUser(context.Background(), "@nobody:example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetUserByName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &User{ID: "@bob:example.org", DisplayName: "bob"}))

	got, err := store.GetUserByName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "@bob:example.org", got.ID)

	_, err = store.GetUserByName(ctx, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &User{ID: "@alice:example.org", DisplayName: "alice"}))
	require.NoError(t, store.DeleteUser(ctx, "@alice:example.org"))

	_, err := store.GetUser(ctx, "@alice:example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.DeleteUser(ctx, "@alice:example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SetAdmin(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &User{ID: "@alice:example.org", DisplayName: "alice"}))
	require.NoError(t, store.CreateUser(ctx, &User{ID: "@bob:example.org", DisplayName: "bob"}))

	require.NoError(t, store.SetAdmin(ctx, "@bob:example.org", true))

	admins, err := store.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "@bob:example.org", admins[0].ID)

	require.NoError(t, store.SetAdmin(ctx, "@bob:example.org", false))
	admins, err = store.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Empty(t, admins)

	err = store.SetAdmin(ctx, "@nobody:example.org", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CreateAffiliate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	panel, err := store.GetControlPanel(ctx, "!panel:example.org")
	require.NoError(t, err)
	assert.Equal(t, "@alice:example.org", panel.OwnerID)

	panel, err = store.GetControlPanelByOwner(ctx, "@alice:example.org")
	require.NoError(t, err)
	assert.Equal(t, "!panel:example.org", panel.ID)

	shop, err := store.GetShopByOwner(ctx, "@alice:example.org")
	require.NoError(t, err)
	assert.Equal(t, "!shop:example.org", shop.ID)
	assert.Equal(t, ShopClosed, shop.Status)
	assert.Nil(t, shop.SignID)
}

func TestStore_CreateAffiliate_OwnerUnique(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestAffiliate(t, store, "@alice:example.org", "!panel1:example.org", "!shop1:example.org")

	err := store.CreateAffiliate(ctx,
		&ControlPanel{ID: "!panel2:example.org", OwnerID: "@alice:example.org"},
		&Shop{ID: "!shop2:example.org", OwnerID: "@alice:example.org", Name: "Second"},
	)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// Neither half of the failed pair was written
	_, err = store.GetControlPanel(ctx, "!panel2:example.org")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetShop(ctx, "!shop2:example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CreateAffiliate_ShopCollisionRollsBackPanel(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestAffiliate(t, store, "@alice:example.org", "!panel1:example.org", "!shop1:example.org")

	err := store.CreateAffiliate(ctx,
		&ControlPanel{ID: "!panel2:example.org", OwnerID: "@bob:example.org"},
		&Shop{ID: "!shop1:example.org", OwnerID: "@bob:example.org", Name: "Taken"},
	)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = store.GetControlPanelByOwner(ctx, "@bob:example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ShopStatusAndSign(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	require.NoError(t, store.SetShopStatus(ctx, "!shop:example.org", ShopOpen))
	require.NoError(t, store.SetShopSign(ctx, "!shop:example.org", "$sign1"))

	shop, err := store.GetShop(ctx, "!shop:example.org")
	require.NoError(t, err)
	assert.Equal(t, ShopOpen, shop.Status)
	require.NotNil(t, shop.SignID)
	assert.Equal(t, "$sign1", *shop.SignID)

	assert.ErrorIs(t, store.SetShopStatus(ctx, "!missing:example.org", ShopOpen), ErrNotFound)
	assert.ErrorIs(t, store.SetShopSign(ctx, "!missing:example.org", "$x"), ErrNotFound)
}

func TestStore_DeleteShop_CascadesItems(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")
	createTestAffiliate(t, store, "@bob:example.org", "!panel-b:example.org", "!shop-b:example.org")

	for _, id := range []string{"$i1", "$i2", "$i3"} {
		require.NoError(t, store.CreateItem(ctx, &Item{
			ID:       id,
			ShopID:   "!shop:example.org",
			Name:     "item " + id,
			Price:    decimal.NewFromInt(1),
			Quantity: Limited(1),
			Type:     ItemDigital,
		}))
	}
	require.NoError(t, store.CreateItem(ctx, &Item{
		ID:       "$other",
		ShopID:   "!shop-b:example.org",
		Name:     "kept",
		Price:    decimal.NewFromInt(1),
		Quantity: UnlimitedQuantity(),
		Type:     ItemService,
	}))

	require.NoError(t, store.DeleteShop(ctx, "!shop:example.org"))

	_, err := store.GetShop(ctx, "!shop:example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := store.ListItems(ctx, "!shop:example.org")
	require.NoError(t, err)
	assert.Empty(t, items)

	others, err := store.ListItems(ctx, "!shop-b:example.org")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	assert.ErrorIs(t, store.DeleteShop(ctx, "!shop:example.org"), ErrNotFound)
}

func TestStore_DeleteControlPanel(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	require.NoError(t, store.DeleteControlPanel(ctx, "!panel:example.org"))
	_, err := store.GetControlPanel(ctx, "!panel:example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	// The shop is untouched
	_, err = store.GetShop(ctx, "!shop:example.org")
	assert.NoError(t, err)

	err = store.DeleteControlPanel(ctx, "!panel:example.org")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParseItemType(t *testing.T) {
	tests := []struct {
		input   string
		want    ItemType
		wantErr bool
	}{
		{"digital", ItemDigital, false},
		{"SERVICE", ItemService, false},
		{" Service ", ItemService, false},
		{"physical", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseItemType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantity_String(t *testing.T) {
	assert.Equal(t, "INF", UnlimitedQuantity().String())
	assert.Equal(t, "0", Limited(0).String())
	assert.Equal(t, "12", Limited(12).String())
}
