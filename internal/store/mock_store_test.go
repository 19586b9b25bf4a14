// ABOUTME: Tests that MockStore follows the same rules as SQLiteStore
// ABOUTME: Covers owner uniqueness, shop scoping, cascade, and copy isolation

package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_AffiliateOwnerUnique(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	createTestAffiliate(t, m, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	err := m.CreateAffiliate(ctx,
		&ControlPanel{ID: "!panel2:example.org", OwnerID: "@alice:example.org"},
		&Shop{ID: "!shop2:example.org", OwnerID: "@alice:example.org"},
	)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	shop, err := m.GetShop(ctx, "!shop:example.org")
	require.NoError(t, err)
	assert.Equal(t, ShopClosed, shop.Status)
}

func TestMockStore_DeleteShopCascades(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	createTestAffiliate(t, m, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	for _, id := range []string{"$1", "$2", "$3"} {
		require.NoError(t, m.CreateItem(ctx, &Item{
			ID: id, ShopID: "!shop:example.org", Name: id,
			Price: decimal.NewFromInt(5), Quantity: Limited(1), Type: ItemDigital,
		}))
	}

	require.NoError(t, m.DeleteShop(ctx, "!shop:example.org"))
	items, err := m.ListItems(ctx, "!shop:example.org")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMockStore_ItemScopedToShop(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	createTestAffiliate(t, m, "@alice:example.org", "!panel-a:example.org", "!shop-a:example.org")

	require.NoError(t, m.CreateItem(ctx, &Item{ID: "$1", ShopID: "!shop-a:example.org", Type: ItemDigital}))

	_, err := m.GetItem(ctx, "$1", "!shop-b:example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.CreateItem(ctx, &Item{ID: "$2", ShopID: "!shop-b:example.org", Type: ItemDigital})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	createTestAffiliate(t, m, "@alice:example.org", "!panel:example.org", "!shop:example.org")
	require.NoError(t, m.SetShopSign(ctx, "!shop:example.org", "$sign"))

	shop, err := m.GetShop(ctx, "!shop:example.org")
	require.NoError(t, err)
	*shop.SignID = "$mutated"
	shop.Name = "mutated"

	again, err := m.GetShop(ctx, "!shop:example.org")
	require.NoError(t, err)
	assert.Equal(t, "$sign", *again.SignID)
	assert.Equal(t, "Test Shop", again.Name)
}

func TestMockStore_AuditLogFilter(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.AppendAuditLog(ctx, &AuditEntry{ActorID: "a", Action: AuditAddItem, TargetType: "item", TargetID: "1"}))
	require.NoError(t, m.AppendAuditLog(ctx, &AuditEntry{ActorID: "b", Action: AuditDeleteItem, TargetType: "item", TargetID: "1"}))

	actor := "b"
	entries, err := m.ListAuditLog(ctx, AuditFilter{ActorID: &actor})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, AuditDeleteItem, entries[0].Action)

	all, err := m.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, AuditDeleteItem, all[0].Action)
}
