// Package store provides persistent storage for the shop bot using SQLite.
//
// # Architecture
//
// Store is the single interface the rest of the bot depends on. SQLiteStore
// implements it on modernc.org/sqlite and MockStore implements it in memory
// for tests that don't need a database file.
//
// # Data Models
//
//   - User: a member of the lobby room, with an admin flag
//   - ControlPanel: the private room an affiliate manages their shop from
//   - Shop: the affiliate's storefront room, open or closed, with a sign
//   - Item: a listing in a shop, keyed by the id of its listing message
//   - AuditEntry: an append-only record of administrative actions
//
// Every user owns at most one control panel and at most one shop; both owner
// columns are UNIQUE. CreateAffiliate writes the pair in one transaction so a
// user is either fully affiliated or not at all.
//
// # Absent values
//
// Optional values are modelled explicitly rather than with sentinels:
//
//   - Shop.SignID is nil until a sign has been posted
//   - Item.Quantity.Unlimited marks unlimited stock (stored as NULL qty)
//   - Item.Image is nil when the item has no image
//
// Prices are stored as decimal strings and scanned back into decimal.Decimal.
//
// # Errors
//
// Lookups and writes against a missing row return ErrNotFound. Inserts that
// collide with a primary key or owner return ErrAlreadyExists. Callers
// should use errors.Is to test for them.
//
// # Migrations
//
// Schema changes are applied at startup by runMigrations. Each migration
// checks pragma_table_info before altering so it is safe to run repeatedly.
package store
