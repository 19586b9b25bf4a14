// ABOUTME: Default file locations and the starter config written by `shopkeeper init`
// ABOUTME: Follows XDG base directories with SHOPKEEPER_CONFIG as an override

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigPath returns the path to the config file.
// Priority: SHOPKEEPER_CONFIG env var > XDG_CONFIG_HOME/shopkeeper/config.toml > ~/.config/shopkeeper/config.toml
func ConfigPath() string {
	if envPath := os.Getenv("SHOPKEEPER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "shopkeeper", "config.toml")
}

// DataPath returns the shopkeeper data directory.
// Priority: XDG_DATA_HOME/shopkeeper > ~/.local/share/shopkeeper
func DataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "shopkeeper")
}

// Starter holds the answers collected by `shopkeeper init`.
type Starter struct {
	Homeserver string
	UserID     string
	LobbyRoom  string
	Admins     []string
	DataDir    string
}

// StarterTOML renders a commented config file. The access token is left as
// an environment reference so it never lands on disk.
func StarterTOML(s Starter) string {
	quoted := make([]string, 0, len(s.Admins))
	for _, a := range s.Admins {
		a = strings.TrimSpace(a)
		if a != "" {
			quoted = append(quoted, fmt.Sprintf("%q", a))
		}
	}

	return fmt.Sprintf(`# shopkeeper configuration

[matrix]
homeserver = %q
user_id = %q
access_token = "${SHOPKEEPER_MATRIX_TOKEN}"
# recovery_key = "${SHOPKEEPER_RECOVERY_KEY}"
data_dir = %q
encryption = false

[bot]
prefix = "!"
lobby_room = %q
admins = [%s]
dedupe_ttl = "10m"

[database]
path = %q

[server]
http_addr = "127.0.0.1:8080"
# grpc_addr = "127.0.0.1:50051"

[logging]
level = "info"
format = "text"

[metrics]
enabled = true
path = "/metrics"
`, s.Homeserver, s.UserID, s.DataDir, s.LobbyRoom, strings.Join(quoted, ", "),
		filepath.Join(s.DataDir, "shopkeeper.db"))
}
