// ABOUTME: Shop and control panel store methods
// ABOUTME: Paired affiliate creation, lookups, status and sign updates, cascading shop deletion

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateAffiliate inserts a control panel and a shop in one transaction.
// Returns ErrAlreadyExists if either row collides with an existing id or owner;
// in that case neither row is written.
func (s *SQLiteStore) CreateAffiliate(ctx context.Context, panel *ControlPanel, shop *Shop) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO shop_control (shop_category_id, owner) VALUES (?, ?)`,
		panel.ID, panel.OwnerID,
	); err != nil {
		if isConstraintViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting control panel: %w", err)
	}

	status := shop.Status
	if status == "" {
		status = ShopClosed
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO shop (shop_id, owner, name, description, status, sign_id) VALUES (?, ?, ?, ?, ?, ?)`,
		shop.ID, shop.OwnerID, shop.Name, shop.Description, status, shop.SignID,
	); err != nil {
		if isConstraintViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting shop: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	shop.Status = status
	s.logger.Debug("created affiliate", "owner", shop.OwnerID, "shop", shop.ID, "control_panel", panel.ID)
	return nil
}

// GetControlPanel retrieves a control panel by its room id.
func (s *SQLiteStore) GetControlPanel(ctx context.Context, id string) (*ControlPanel, error) {
	var p ControlPanel
	err := s.db.QueryRowContext(ctx,
		`SELECT shop_category_id, owner FROM shop_control WHERE shop_category_id = ?`, id,
	).Scan(&p.ID, &p.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying control panel: %w", err)
	}
	return &p, nil
}

// GetControlPanelByOwner retrieves the control panel owned by a user.
func (s *SQLiteStore) GetControlPanelByOwner(ctx context.Context, ownerID string) (*ControlPanel, error) {
	var p ControlPanel
	err := s.db.QueryRowContext(ctx,
		`SELECT shop_category_id, owner FROM shop_control WHERE owner = ?`, ownerID,
	).Scan(&p.ID, &p.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying control panel by owner: %w", err)
	}
	return &p, nil
}

// DeleteControlPanel removes a control panel.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) DeleteControlPanel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM shop_control WHERE shop_category_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting control panel: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	s.logger.Debug("deleted control panel", "id", id)
	return nil
}

const shopColumns = `shop_id, owner, name, description, status, sign_id`

// GetShop retrieves a shop by its room id.
func (s *SQLiteStore) GetShop(ctx context.Context, id string) (*Shop, error) {
	return scanShop(s.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shop WHERE shop_id = ?`, id))
}

// GetShopByOwner retrieves the shop owned by a user.
func (s *SQLiteStore) GetShopByOwner(ctx context.Context, ownerID string) (*Shop, error) {
	return scanShop(s.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shop WHERE owner = ?`, ownerID))
}

// SetShopStatus updates whether a shop is open.
// Returns ErrNotFound if the shop doesn't exist.
func (s *SQLiteStore) SetShopStatus(ctx context.Context, id string, status ShopStatus) error {
	result, err := s.db.ExecContext(ctx, `UPDATE shop SET status = ? WHERE shop_id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating shop status: %w", err)
	}
	return checkAffected(result)
}

// SetShopSign records the event id of the shop's current sign.
// Returns ErrNotFound if the shop doesn't exist.
func (s *SQLiteStore) SetShopSign(ctx context.Context, id string, signID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE shop SET sign_id = ? WHERE shop_id = ?`, signID, id)
	if err != nil {
		return fmt.Errorf("updating shop sign: %w", err)
	}
	return checkAffected(result)
}

// DeleteShop removes a shop and every item listed in it.
// Returns ErrNotFound if the shop doesn't exist.
func (s *SQLiteStore) DeleteShop(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Same effect as the FK cascade, which only runs with foreign_keys on.
	items, err := tx.ExecContext(ctx, `DELETE FROM item WHERE shop_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting shop items: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM shop WHERE shop_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting shop: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	removed, _ := items.RowsAffected()
	s.logger.Debug("deleted shop", "id", id, "items", removed)
	return nil
}

func scanShop(scanner interface{ Scan(dest ...any) error }) (*Shop, error) {
	var sh Shop
	var status string
	var sign sql.NullString

	err := scanner.Scan(&sh.ID, &sh.OwnerID, &sh.Name, &sh.Description, &status, &sign)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning shop: %w", err)
	}

	sh.Status = ShopStatus(status)
	if sign.Valid {
		sh.SignID = &sign.String
	}
	return &sh, nil
}
