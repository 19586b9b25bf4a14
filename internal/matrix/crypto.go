// ABOUTME: End-to-end encryption for the shopkeeper Matrix account
// ABOUTME: Keeps the mautrix crypto store in SQLite and resets it when the device id changes

package matrix

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
)

// cryptoStore wraps the mautrix crypto helper attached to a client.
type cryptoStore struct {
	helper *cryptohelper.CryptoHelper
	logger *slog.Logger
}

// setupCrypto attaches E2EE to client. The store lives in dataDir, one file
// per account. With a recovery key the device is also cross-signed; failing
// that step leaves encryption working unverified.
func setupCrypto(ctx context.Context, client *mautrix.Client, recoveryKey, dataDir string, logger *slog.Logger) (*cryptoStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating crypto directory: %w", err)
	}

	userID := client.UserID.String()
	dbPath := cryptoDBPath(dataDir, userID)
	logger.Info("setting up encryption", "db", dbPath)

	if err := resetOnDeviceChange(dbPath, client.DeviceID.String(), logger); err != nil {
		return nil, err
	}

	helper, err := cryptohelper.NewCryptoHelper(client, storeKey(userID), dbPath)
	if err != nil {
		return nil, fmt.Errorf("creating crypto helper: %w", err)
	}
	if err := helper.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing crypto helper: %w", err)
	}
	client.Crypto = helper

	cs := &cryptoStore{helper: helper, logger: logger}
	if recoveryKey == "" {
		logger.Info("encryption enabled without cross-signing")
		return cs, nil
	}
	if err := cs.verify(ctx, recoveryKey); err != nil {
		logger.Warn("recovery key verification failed, continuing unverified", "error", err)
	}
	return cs, nil
}

func (cs *cryptoStore) verify(ctx context.Context, recoveryKey string) error {
	machine := cs.helper.Machine()
	if machine == nil {
		return errors.New("crypto machine not initialized")
	}
	if err := machine.VerifyWithRecoveryKey(ctx, recoveryKey); err != nil {
		return fmt.Errorf("verifying with recovery key: %w", err)
	}
	cs.logger.Info("device cross-signed with recovery key")
	return nil
}

func (cs *cryptoStore) Close() error {
	if cs == nil || cs.helper == nil {
		return nil
	}
	return cs.helper.Close()
}

// resetOnDeviceChange deletes the crypto store when it belongs to another
// device, which happens after a fresh password login.
func resetOnDeviceChange(dbPath, deviceID string, logger *slog.Logger) error {
	stale, err := storedDeviceDiffers(dbPath, deviceID)
	if err != nil {
		logger.Debug("could not read stored device id", "error", err)
		return nil
	}
	if !stale {
		return nil
	}

	logger.Warn("device id changed, resetting crypto store", "device", deviceID)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing crypto store: %w", err)
	}
	_ = os.Remove(dbPath + "-wal")
	_ = os.Remove(dbPath + "-shm")
	return nil
}

// storedDeviceDiffers reports whether dbPath holds an account for a device
// other than deviceID. A missing database or account is not a mismatch.
func storedDeviceDiffers(dbPath, deviceID string) (bool, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return false, nil
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var stored string
	err = db.QueryRow("SELECT device_id FROM crypto_account LIMIT 1").Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored != deviceID, nil
}

func cryptoDBPath(dataDir, userID string) string {
	return filepath.Join(dataDir, fmt.Sprintf("shopkeeper-crypto-%s.db", fileSafe(userID)))
}

// fileSafe turns @shopkeeper:example.org into shopkeeper_example.org.
func fileSafe(userID string) string {
	out := make([]byte, 0, len(userID))
	for i := 0; i < len(userID); i++ {
		c := userID[i]
		switch {
		case i == 0 && c == '@':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			out = append(out, c)
		case c == ':':
			out = append(out, '_')
		}
	}
	return string(out)
}

// storeKey derives the pickle key for the crypto store from the account id.
func storeKey(userID string) []byte {
	h := sha256.Sum256([]byte("shopkeeper-crypto:" + userID))
	return h[:]
}
