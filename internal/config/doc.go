// Package config loads the shopkeeper configuration.
//
// # File Formats
//
// Load picks the decoder from the file extension: ".toml" files are decoded
// with BurntSushi/toml, anything else with yaml.v3. Both formats share the
// same keys:
//
//	[matrix]
//	homeserver = "https://matrix.example.org"
//	user_id = "@shopkeeper:example.org"
//	access_token = "${SHOPKEEPER_MATRIX_TOKEN}"
//
//	[bot]
//	prefix = "!"
//	lobby_room = "!lobby:example.org"
//	admins = ["@owner:example.org"]
//	dedupe_ttl = "10m"
//
//	[database]
//	path = "/var/lib/shopkeeper/shopkeeper.db"
//
// # Environment Variables
//
// ${VAR} references anywhere in the file are replaced before decoding. Unset
// variables expand to the empty string, which Validate then reports if the
// field was required.
//
// # Defaults
//
// bot.prefix defaults to "!", bot.dedupe_ttl to ten minutes, logging.level to
// "info" and metrics.path to "/metrics". An empty server address disables
// that listener.
//
// # Locations
//
// ConfigPath honours SHOPKEEPER_CONFIG, then XDG_CONFIG_HOME, then
// ~/.config. DataPath uses XDG_DATA_HOME or ~/.local/share.
package config
