// ABOUTME: Entry point for the shopkeeper Matrix bot
// ABOUTME: Runs the bot, checks a running instance's health, or writes a starter config

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/2389/shopkeeper/internal/bot"
	"github.com/2389/shopkeeper/internal/config"
	"github.com/2389/shopkeeper/internal/health"
	"github.com/2389/shopkeeper/internal/matrix"
	"github.com/2389/shopkeeper/internal/metrics"
	"github.com/2389/shopkeeper/internal/shop"
	"github.com/2389/shopkeeper/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _                 _
 ___| |__   ___  _ __ | | _____  ___ _ __   ___ _ __
/ __| '_ \ / _ \| '_ \| |/ / _ \/ _ \ '_ \ / _ \ '__|
\__ \ | | | (_) | |_) |   <  __/  __/ |_) |  __/ |
|___/_| |_|\___/| .__/|_|\_\___|\___| .__/ \___|_|
                |_|                 |_|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: shopkeeper <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Connect to Matrix and run the shop bot")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check a running bot's health endpoint")
		fmt.Println("  ready    Check whether a running bot can reach its database")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx, "/health")
	case "ready":
		err = runHealth(ctx, "/health/ready")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.ConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("Lobby:      %s\n", cfg.Bot.LobbyRoom)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Path)
	if cfg.Server.HTTPAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:       %s\n", cfg.Server.HTTPAddr)
	}
	if cfg.Server.GRPCAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:       %s\n", cfg.Server.GRPCAddr)
	}
	fmt.Println()

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	svc := shop.New(st, logger)
	if err := svc.EnsureAdmins(ctx, cfg.Bot.Admins); err != nil {
		return fmt.Errorf("seeding admins: %w", err)
	}

	reg := prometheus.NewRegistry()
	var botMetrics *metrics.Bot
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		botMetrics = metrics.NewBot(reg)
	}

	client, err := matrix.New(cfg.Matrix, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Login(ctx); err != nil {
		return err
	}
	if cfg.Matrix.Encryption {
		dataDir := cfg.Matrix.DataDir
		if dataDir == "" {
			dataDir = config.DataPath()
		}
		if err := client.EnableEncryption(ctx, dataDir); err != nil {
			return fmt.Errorf("enabling encryption: %w", err)
		}
	}

	b, err := bot.New(svc, client, bot.Options{
		Prefix:    cfg.Bot.Prefix,
		BotUserID: client.UserID(),
		LobbyRoom: cfg.Bot.LobbyRoom,
		DedupeTTL: cfg.Bot.DedupeTTL,
		Metrics:   botMetrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	logger.Info("starting shopkeeper",
		"config", configPath,
		"user_id", client.UserID(),
		"lobby", cfg.Bot.LobbyRoom,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go b.Run(ctx)

	healthSrv := health.New(health.Options{
		Server:   cfg.Server,
		Metrics:  cfg.Metrics,
		Store:    st,
		Gatherer: reg,
		Logger:   logger,
	})
	healthErr := make(chan error, 1)
	go func() { healthErr <- healthSrv.Run(ctx) }()
	healthSrv.SetServing(true)

	syncErr := make(chan error, 1)
	go func() { syncErr <- client.Run(ctx, b, cfg.Bot.LobbyRoom) }()

	return awaitFirst(cancel, syncErr, healthErr)
}

// awaitFirst waits for either side to stop, cancels the other and joins
// both results. Each channel must deliver exactly once.
func awaitFirst(cancel context.CancelFunc, syncErr, healthErr <-chan error) error {
	select {
	case err := <-syncErr:
		cancel()
		return errors.Join(err, <-healthErr)
	case err := <-healthErr:
		cancel()
		return errors.Join(err, <-syncErr)
	}
}

func runHealth(ctx context.Context, path string) error {
	configPath := config.ConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.HTTPAddr == "" {
		return errors.New("server.http_addr is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("shopkeeper configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.ConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Matrix ---")
	homeserver := prompt(reader, "Homeserver URL", "https://matrix.org")
	userID := prompt(reader, "Bot user ID (e.g., @shopkeeper:matrix.org)", "")
	if userID == "" {
		return errors.New("bot user ID is required")
	}

	fmt.Println("\n--- Shop ---")
	lobby := prompt(reader, "Lobby room ID (e.g., !abc123:matrix.org)", "")
	if lobby == "" {
		return errors.New("lobby room ID is required")
	}
	admins := prompt(reader, "Admin user IDs (comma-separated)", "")

	fmt.Println("\n--- Storage ---")
	dataDir := prompt(reader, "Data directory", config.DataPath())

	content := config.StarterTOML(config.Starter{
		Homeserver: homeserver,
		UserID:     userID,
		LobbyRoom:  lobby,
		Admins:     strings.Split(admins, ","),
		DataDir:    dataDir,
	})

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("\n  ✓ Config written to %s\n", outputFile)
	fmt.Printf("  ✓ Data directory: %s\n", dataDir)
	fmt.Println("\nSet the bot's access token, then start it:")
	fmt.Println("  export SHOPKEEPER_MATRIX_TOKEN=...")
	fmt.Println("  shopkeeper serve")

	return nil
}

func isYes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// EOF keeps the default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
