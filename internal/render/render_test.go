// ABOUTME: Tests for bot output rendering
// ABOUTME: Covers price and quantity formatting, listings, signs, tables, and help docs

package render

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/shopkeeper/internal/store"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"12.5", "$12.50"},
		{"999.999", "$1,000.00"},
		{"1234.5", "$1,234.50"},
		{"1234567.891", "$1,234,567.89"},
		{"-42", "-$42.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "INF", FormatQuantity(store.UnlimitedQuantity()))
	assert.Equal(t, "7", FormatQuantity(store.Limited(7)))
}

func TestMarkdown(t *testing.T) {
	msg := Markdown("**bold** and `code`")
	assert.Equal(t, "**bold** and `code`", msg.Plain)
	assert.Contains(t, msg.HTML, "<strong>bold</strong>")
	assert.Contains(t, msg.HTML, "<code>code</code>")
}

func TestMarkdown_RawHTMLNotPassedThrough(t *testing.T) {
	msg := Markdown("<script>alert(1)</script>")
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `\*\*not bold\*\*`, Escape("**not bold**"))
	assert.Equal(t, "plain text", Escape("plain text"))

	msg := Markdown(Escape("**x**"))
	assert.NotContains(t, msg.HTML, "<strong>")
}

func TestItemListing(t *testing.T) {
	image := "https://i.example.org/logo.png"
	item := &store.Item{
		Name:        "Logo",
		Description: "A custom logo",
		Price:       decimal.RequireFromString("1234.5"),
		Quantity:    store.UnlimitedQuantity(),
		Type:        store.ItemService,
		Image:       &image,
	}

	msg := ItemListing(item)
	assert.Contains(t, msg.Plain, "**Item:** Logo")
	assert.Contains(t, msg.Plain, "**Type:** SERVICE")
	assert.Contains(t, msg.Plain, "**Price:** $1,234.50")
	assert.Contains(t, msg.Plain, "**Qty Avl:** INF")
	assert.Contains(t, msg.Plain, "A custom logo")
	assert.Contains(t, msg.HTML, `<img src="https://i.example.org/logo.png"`)

	item.Image = nil
	item.Quantity = store.Limited(2)
	msg = ItemListing(item)
	assert.Contains(t, msg.Plain, "**Qty Avl:** 2")
	assert.NotContains(t, msg.HTML, "<img")
}

func TestShopSign(t *testing.T) {
	sh := &store.Shop{Name: "alices shop", Status: store.ShopClosed}

	msg := ShopSign("alice", sh)
	assert.Contains(t, msg.Plain, "## alices shop")
	assert.Contains(t, msg.Plain, "Owner: alice")
	assert.Contains(t, msg.Plain, SignText(store.ShopClosed))
	assert.Contains(t, msg.Plain, "**This shop is currently closed!**")

	sh.Status = store.ShopOpen
	assert.Contains(t, ShopSign("alice", sh).Plain, "currently open")
}

func TestItemTable(t *testing.T) {
	empty := ItemTable(nil)
	assert.Contains(t, empty.Plain, "no items")

	items := []*store.Item{
		{ID: "$a", Name: "Avatar", Type: store.ItemDigital, Price: decimal.NewFromInt(5), Quantity: store.Limited(1)},
		{ID: "$b", Name: "Banner", Type: store.ItemService, Price: decimal.NewFromInt(10), Quantity: store.UnlimitedQuantity()},
	}
	msg := ItemTable(items)
	assert.Contains(t, msg.Plain, "| `$a` | Avatar | DIGITAL | $5.00 | 1 |")
	assert.Contains(t, msg.Plain, "| `$b` | Banner | SERVICE | $10.00 | INF |")
	assert.Contains(t, msg.HTML, "<table>")
}

func TestHelp(t *testing.T) {
	msg, err := Help("!")
	require.NoError(t, err)
	assert.Contains(t, msg.Plain, "`!add_item <name> <price> <qty> <type> <image> <desc>`")
	assert.Contains(t, msg.Plain, "`!set_affiliate <user> <true/false>`")
	assert.NotContains(t, msg.Plain, "{{")
	assert.Contains(t, msg.HTML, "<table>")

	msg, err = Help("*")
	require.NoError(t, err)
	assert.Contains(t, msg.Plain, "`*shop <open/close>`")
}

func TestControlPanelWelcome(t *testing.T) {
	msg, err := ControlPanelWelcome("!")
	require.NoError(t, err)
	assert.Contains(t, msg.Plain, "Welcome to your shop control panel!")
	assert.Contains(t, msg.Plain, "`!help`")
}

func TestMemberWelcome(t *testing.T) {
	msg, err := MemberWelcome("!")
	require.NoError(t, err)
	assert.Contains(t, msg.Plain, "Welcome to Affiliates Only!")
	assert.Contains(t, msg.Plain, "`!help`")
}

func TestAuditLog(t *testing.T) {
	assert.Equal(t, "No audit entries recorded.", AuditLog(nil).Plain)

	msg := AuditLog([]store.AuditEntry{{
		ActorID:    "@admin:example.org",
		Action:     store.AuditGrantAffiliate,
		TargetType: "user",
		TargetID:   "@alice:example.org",
		Timestamp:  time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}})
	assert.Contains(t, msg.Plain, "2024-03-01 12:30")
	assert.Contains(t, msg.Plain, "grant_affiliate")
	assert.Contains(t, msg.HTML, "<table>")
}
