// ABOUTME: Item store methods for shop listings
// ABOUTME: Create, lookup, list, update, and delete rows of the item table scoped by shop

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const itemColumns = `item_id, shop_id, name, description, price, qty, type, image`

// CreateItem inserts a new item.
// Returns ErrAlreadyExists if the item id is taken and ErrNotFound if the shop doesn't exist.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *Item) error {
	query := `INSERT INTO item (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.ShopID,
		item.Name,
		item.Description,
		item.Price.String(),
		quantityValue(item.Quantity),
		item.Type,
		item.Image,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		if isConstraintViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting item: %w", err)
	}

	s.logger.Debug("created item", "id", item.ID, "shop", item.ShopID)
	return nil
}

// GetItem retrieves an item listed in the given shop.
// Returns ErrNotFound if no item matches both ids.
func (s *SQLiteStore) GetItem(ctx context.Context, id, shopID string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM item WHERE item_id = ? AND shop_id = ?`
	return scanItem(s.db.QueryRowContext(ctx, query, id, shopID))
}

// ListItems returns every item in a shop, ordered by name.
func (s *SQLiteStore) ListItems(ctx context.Context, shopID string) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM item WHERE shop_id = ? ORDER BY name, item_id`

	rows, err := s.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}

	return items, nil
}

// UpdateItem writes every mutable column of an item.
// Returns ErrNotFound if no item matches the id and shop id.
func (s *SQLiteStore) UpdateItem(ctx context.Context, item *Item) error {
	query := `
		UPDATE item
		SET name = ?, description = ?, price = ?, qty = ?, type = ?, image = ?
		WHERE item_id = ? AND shop_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		item.Name,
		item.Description,
		item.Price.String(),
		quantityValue(item.Quantity),
		item.Type,
		item.Image,
		item.ID,
		item.ShopID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	s.logger.Debug("updated item", "id", item.ID, "shop", item.ShopID)
	return nil
}

// DeleteItem removes an item from a shop.
// Returns ErrNotFound if no item matches the id and shop id.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id, shopID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM item WHERE item_id = ? AND shop_id = ?`, id, shopID)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	s.logger.Debug("deleted item", "id", id, "shop", shopID)
	return nil
}

// quantityValue maps an unlimited quantity to NULL
func quantityValue(q Quantity) any {
	if q.Unlimited {
		return nil
	}
	return q.Count
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var item Item
	var price, itemType string
	var qty sql.NullInt64
	var image sql.NullString

	err := scanner.Scan(
		&item.ID,
		&item.ShopID,
		&item.Name,
		&item.Description,
		&price,
		&qty,
		&itemType,
		&image,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}

	item.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing price %q: %w", price, err)
	}

	if qty.Valid {
		item.Quantity = Limited(int(qty.Int64))
	} else {
		item.Quantity = UnlimitedQuantity()
	}

	item.Type = ItemType(itemType)
	if image.Valid {
		item.Image = &image.String
	}

	return &item, nil
}
