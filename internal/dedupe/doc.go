// Package dedupe keeps the bot from doing the same work twice: Events drops
// redelivered chat events by id, and Guard drops overlapping work on one key.
package dedupe
