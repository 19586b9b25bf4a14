// ABOUTME: Tests for item store operations
// ABOUTME: Covers create, shop scoping, decimal prices, unlimited quantity, update, and delete

package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(id, shopID string) *Item {
	return &Item{
		ID:          id,
		ShopID:      shopID,
		Name:        "Logo design",
		Description: "A custom logo",
		Price:       decimal.RequireFromString("1234.50"),
		Quantity:    Limited(3),
		Type:        ItemService,
	}
}

func TestItemStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	image := "https://example.org/logo.png"
	item := newTestItem("$item1", "!shop:example.org")
	item.Image = &image
	require.NoError(t, store.CreateItem(ctx, item))

	got, err := store.GetItem(ctx, "$item1", "!shop:example.org")
	require.NoError(t, err)
	assert.Equal(t, "Logo design", got.Name)
	assert.Equal(t, "A custom logo", got.Description)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1234.5")), "price %s", got.Price)
	assert.Equal(t, Limited(3), got.Quantity)
	assert.Equal(t, ItemService, got.Type)
	require.NotNil(t, got.Image)
	assert.Equal(t, image, *got.Image)
}

func TestItemStore_UnlimitedAndNoImage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	item := newTestItem("$item1", "!shop:example.org")
	item.Quantity = UnlimitedQuantity()
	require.NoError(t, store.CreateItem(ctx, item))

	got, err := store.GetItem(ctx, "$item1", "!shop:example.org")
	require.NoError(t, err)
	assert.True(t, got.Quantity.Unlimited)
	assert.Nil(t, got.Image)
}

func TestItemStore_CreateItem_UnknownShop(t *testing.T) {
	store := setupTestStore(t)

	err := store.CreateItem(context.Background(), newTestItem("$item1", "!missing:example.org"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemStore_CreateItem_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	require.NoError(t, store.CreateItem(ctx, newTestItem("$item1", "!shop:example.org")))
	err := store.CreateItem(ctx, newTestItem("$item1", "!shop:example.org"))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestItemStore_GetItem_ScopedToShop(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestAffiliate(t, store, "@alice:example.org", "!panel-a:example.org", "!shop-a:example.org")
	createTestAffiliate(t, store, "@bob:example.org", "!panel-b:example.org", "!shop-b:example.org")

	require.NoError(t, store.CreateItem(ctx, newTestItem("$item1", "!shop-a:example.org")))

	_, err := store.GetItem(ctx, "$item1", "!shop-b:example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.DeleteItem(ctx, "$item1", "!shop-b:example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetItem(ctx, "$item1", "!shop-a:example.org")
	assert.NoError(t, err)
}

func TestItemStore_ListItems(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	empty, err := store.ListItems(ctx, "!shop:example.org")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for id, name := range map[string]string{"$b": "Banner", "$a": "Avatar", "$c": "Commission"} {
		item := newTestItem(id, "!shop:example.org")
		item.Name = name
		require.NoError(t, store.CreateItem(ctx, item))
	}

	items, err := store.ListItems(ctx, "!shop:example.org")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Avatar", items[0].Name)
	assert.Equal(t, "Banner", items[1].Name)
	assert.Equal(t, "Commission", items[2].Name)
}

func TestItemStore_UpdateItem(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	item := newTestItem("$item1", "!shop:example.org")
	require.NoError(t, store.CreateItem(ctx, item))

	item.Name = "Icon design"
	item.Price = decimal.RequireFromString("9.99")
	item.Quantity = UnlimitedQuantity()
	item.Type = ItemDigital
	require.NoError(t, store.UpdateItem(ctx, item))

	got, err := store.GetItem(ctx, "$item1", "!shop:example.org")
	require.NoError(t, err)
	assert.Equal(t, "Icon design", got.Name)
	assert.Equal(t, "9.99", got.Price.StringFixed(2))
	assert.True(t, got.Quantity.Unlimited)
	assert.Equal(t, ItemDigital, got.Type)

	missing := newTestItem("$nope", "!shop:example.org")
	assert.ErrorIs(t, store.UpdateItem(ctx, missing), ErrNotFound)
}

func TestItemStore_DeleteItem(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestAffiliate(t, store, "@alice:example.org", "!panel:example.org", "!shop:example.org")

	require.NoError(t, store.CreateItem(ctx, newTestItem("$item1", "!shop:example.org")))
	require.NoError(t, store.DeleteItem(ctx, "$item1", "!shop:example.org"))

	_, err := store.GetItem(ctx, "$item1", "!shop:example.org")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteItem(ctx, "$item1", "!shop:example.org"), ErrNotFound)
}
