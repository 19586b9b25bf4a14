// ABOUTME: Store interface and data types for shopkeeper persistence
// ABOUTME: Defines User, Shop, ControlPanel, Item structs and the Store interface

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when an insert collides with a unique key
var ErrAlreadyExists = errors.New("already exists")

// User is a member of the lobby room
type User struct {
	ID          string
	DisplayName string
	Email       *string
	Admin       bool
	Rank        int
	JoinedAt    time.Time
}

// ShopStatus is whether a shop room is visible to members
type ShopStatus string

const (
	ShopOpen   ShopStatus = "open"
	ShopClosed ShopStatus = "closed"
)

// IsValid reports whether the value is a known ShopStatus.
func (s ShopStatus) IsValid() bool {
	return s == ShopOpen || s == ShopClosed
}

// Shop is an affiliate's storefront room
type Shop struct {
	ID          string // shop room id
	OwnerID     string
	Name        string
	Description string
	Status      ShopStatus
	SignID      *string // event id of the rendered sign, nil until posted
}

// ControlPanel is the private room an affiliate manages their shop from
type ControlPanel struct {
	ID      string // control panel room id
	OwnerID string
}

// ItemType is the kind of goods an item listing sells
type ItemType string

const (
	ItemDigital ItemType = "DIGITAL"
	ItemService ItemType = "SERVICE"
)

var validItemTypes = []ItemType{
	ItemDigital,
	ItemService,
}

// IsValid reports whether the value is a known ItemType.
func (t ItemType) IsValid() bool {
	for _, candidate := range validItemTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseItemType converts raw input into an ItemType, ignoring case.
func ParseItemType(value string) (ItemType, error) {
	upper := ItemType(strings.ToUpper(strings.TrimSpace(value)))
	if upper.IsValid() {
		return upper, nil
	}
	return "", fmt.Errorf("invalid item type %q", value)
}

// Quantity is the available stock of an item. Unlimited items have no count.
type Quantity struct {
	Unlimited bool
	Count     int
}

// UnlimitedQuantity returns a quantity with no upper bound.
func UnlimitedQuantity() Quantity {
	return Quantity{Unlimited: true}
}

// Limited returns a quantity of n units.
func Limited(n int) Quantity {
	return Quantity{Count: n}
}

func (q Quantity) String() string {
	if q.Unlimited {
		return "INF"
	}
	return fmt.Sprintf("%d", q.Count)
}

// Item is a listing in a shop. Its ID is the id of the listing message.
type Item struct {
	ID          string
	ShopID      string
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    Quantity
	Type        ItemType
	Image       *string // nil when the item has no image
}

// Store defines the interface for shop persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByName(ctx context.Context, displayName string) (*User, error)
	DeleteUser(ctx context.Context, id string) error
	SetAdmin(ctx context.Context, id string, admin bool) error
	ListAdmins(ctx context.Context) ([]*User, error)

	// Affiliate resources
	CreateAffiliate(ctx context.Context, panel *ControlPanel, shop *Shop) error
	GetControlPanel(ctx context.Context, id string) (*ControlPanel, error)
	GetControlPanelByOwner(ctx context.Context, ownerID string) (*ControlPanel, error)
	DeleteControlPanel(ctx context.Context, id string) error

	// Shops
	GetShop(ctx context.Context, id string) (*Shop, error)
	GetShopByOwner(ctx context.Context, ownerID string) (*Shop, error)
	SetShopStatus(ctx context.Context, id string, status ShopStatus) error
	SetShopSign(ctx context.Context, id string, signID string) error
	DeleteShop(ctx context.Context, id string) error

	// Items
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id, shopID string) (*Item, error)
	ListItems(ctx context.Context, shopID string) ([]*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id, shopID string) error

	// Audit log
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)

	// Ping checks the database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
