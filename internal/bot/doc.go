// Package bot implements the shopkeeper chat commands and event handlers.
//
// The bot is platform neutral: it receives Message and Membership values and
// performs side effects through the Platform interface, which the matrix
// package implements over mautrix.
//
// # Commands
//
// Commands start with the configured prefix and take whitespace separated
// arguments; quotes group words (see SplitArgs). Admin commands
// (set_affiliate, set_admin_status, audit) work in any room. Shop commands
// (shop, items, add_item, delete_item, set_item_*) only run in the sender's
// own control panel and are silently ignored elsewhere.
//
// Every typed failure from the shop package becomes a notice in the room the
// command came from. Platform effects (posting listings, tearing down rooms)
// only follow successful writes, except that add_item posts its listing
// first, because the listing's event id is the item id, and redacts it again
// if the write fails.
//
// # Events
//
// Joins to the lobby room register the user and send them a welcome DM.
// Leaves revoke any affiliate status, tear down the user's rooms and remove
// the user. Any message in a shop room by someone other than the bot
// re-posts the shop sign so it stays at the bottom.
//
// Each event id is handled at most once within the dedupe window.
package bot
