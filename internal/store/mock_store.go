// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite while keeping the same uniqueness and cascade rules

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	users  map[string]*User         // keyed by user ID
	panels map[string]*ControlPanel // keyed by room ID
	shops  map[string]*Shop         // keyed by room ID
	items  map[itemKey]*Item
	audit  []AuditEntry
}

type itemKey struct{ id, shopID string }

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:  make(map[string]*User),
		panels: make(map[string]*ControlPanel),
		shops:  make(map[string]*Shop),
		items:  make(map[itemKey]*Item),
	}
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return ErrAlreadyExists
	}
	u := *user
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now().UTC()
	}
	m.users[u.ID] = &u
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *u
	return &result, nil
}

// GetUserByName retrieves a user by display name.
func (m *MockStore) GetUserByName(ctx context.Context, displayName string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.DisplayName == displayName {
			result := *u
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

// DeleteUser removes a user.
func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// SetAdmin updates a user's admin flag.
func (m *MockStore) SetAdmin(ctx context.Context, id string, admin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Admin = admin
	return nil
}

// ListAdmins returns all admins sorted by ID.
func (m *MockStore) ListAdmins(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*User
	for _, u := range m.users {
		if u.Admin {
			c := *u
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CreateAffiliate stores a control panel and shop together.
func (m *MockStore) CreateAffiliate(ctx context.Context, panel *ControlPanel, shop *Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.panels[panel.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := m.shops[shop.ID]; ok {
		return ErrAlreadyExists
	}
	for _, p := range m.panels {
		if p.OwnerID == panel.OwnerID {
			return ErrAlreadyExists
		}
	}
	for _, sh := range m.shops {
		if sh.OwnerID == shop.OwnerID {
			return ErrAlreadyExists
		}
	}

	if shop.Status == "" {
		shop.Status = ShopClosed
	}
	p := *panel
	sh := *shop
	m.panels[p.ID] = &p
	m.shops[sh.ID] = &sh
	return nil
}

// GetControlPanel retrieves a control panel by room ID.
func (m *MockStore) GetControlPanel(ctx context.Context, id string) (*ControlPanel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.panels[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *p
	return &result, nil
}

// GetControlPanelByOwner retrieves a user's control panel.
func (m *MockStore) GetControlPanelByOwner(ctx context.Context, ownerID string) (*ControlPanel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.panels {
		if p.OwnerID == ownerID {
			result := *p
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

// DeleteControlPanel removes a control panel.
func (m *MockStore) DeleteControlPanel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.panels[id]; !ok {
		return ErrNotFound
	}
	delete(m.panels, id)
	return nil
}

// GetShop retrieves a shop by room ID.
func (m *MockStore) GetShop(ctx context.Context, id string) (*Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.shops[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyShop(sh), nil
}

// GetShopByOwner retrieves a user's shop.
func (m *MockStore) GetShopByOwner(ctx context.Context, ownerID string) (*Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sh := range m.shops {
		if sh.OwnerID == ownerID {
			return copyShop(sh), nil
		}
	}
	return nil, ErrNotFound
}

// SetShopStatus updates a shop's status.
func (m *MockStore) SetShopStatus(ctx context.Context, id string, status ShopStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.shops[id]
	if !ok {
		return ErrNotFound
	}
	sh.Status = status
	return nil
}

// SetShopSign updates a shop's sign event ID.
func (m *MockStore) SetShopSign(ctx context.Context, id string, signID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.shops[id]
	if !ok {
		return ErrNotFound
	}
	sh.SignID = &signID
	return nil
}

// DeleteShop removes a shop and its items.
func (m *MockStore) DeleteShop(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shops[id]; !ok {
		return ErrNotFound
	}
	delete(m.shops, id)
	for key := range m.items {
		if key.shopID == id {
			delete(m.items, key)
		}
	}
	return nil
}

// CreateItem stores a new item.
func (m *MockStore) CreateItem(ctx context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shops[item.ShopID]; !ok {
		return ErrNotFound
	}
	key := itemKey{item.ID, item.ShopID}
	if _, ok := m.items[key]; ok {
		return ErrAlreadyExists
	}
	m.items[key] = copyItem(item)
	return nil
}

// GetItem retrieves an item scoped to a shop.
func (m *MockStore) GetItem(ctx context.Context, id, shopID string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemKey{id, shopID}]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(item), nil
}

// ListItems returns all items in a shop sorted by name.
func (m *MockStore) ListItems(ctx context.Context, shopID string) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Item{}
	for _, item := range m.items {
		if item.ShopID == shopID {
			result = append(result, copyItem(item))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateItem replaces an item's mutable fields.
func (m *MockStore) UpdateItem(ctx context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey{item.ID, item.ShopID}
	if _, ok := m.items[key]; !ok {
		return ErrNotFound
	}
	m.items[key] = copyItem(item)
	return nil
}

// DeleteItem removes an item from a shop.
func (m *MockStore) DeleteItem(ctx context.Context, id, shopID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey{id, shopID}
	if _, ok := m.items[key]; !ok {
		return ErrNotFound
	}
	delete(m.items, key)
	return nil
}

// AppendAuditLog records an audit entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.audit = append(m.audit, *e)
	return nil
}

// ListAuditLog returns matching audit entries newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := normalizeAuditLimit(f.Limit)
	result := []AuditEntry{}
	for i := len(m.audit) - 1; i >= 0 && len(result) < limit; i-- {
		e := m.audit[i]
		if f.ActorID != nil && e.ActorID != *f.ActorID {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.TargetType != nil && e.TargetType != *f.TargetType {
			continue
		}
		if f.TargetID != nil && e.TargetID != *f.TargetID {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// Ping always succeeds.
func (m *MockStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

func copyShop(sh *Shop) *Shop {
	c := *sh
	if sh.SignID != nil {
		sign := *sh.SignID
		c.SignID = &sign
	}
	return &c
}

func copyItem(item *Item) *Item {
	c := *item
	if item.Image != nil {
		img := *item.Image
		c.Image = &img
	}
	return &c
}

// Compile-time interface checks
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MockStore)(nil)
)
