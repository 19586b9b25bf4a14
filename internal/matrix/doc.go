// Package matrix connects the bot to a Matrix homeserver using mautrix.
//
// Client implements bot.Platform. Shop rooms are created invite-only with
// events_default raised so only the bot posts in them; opening a shop flips
// the join rule to public. Control panels are private rooms shared by the
// owner and the bot. Direct message rooms are created on first use and
// cached for the life of the process.
//
// Run drives the sync loop. Text messages and lobby membership changes are
// converted to bot.Message and bot.Membership and handed to the Handler on
// their own goroutines. Events from before startup are skipped.
//
// With encryption enabled the mautrix crypto helper keeps its keys in a
// SQLite file (mattn/go-sqlite3) under the configured data directory.
package matrix
