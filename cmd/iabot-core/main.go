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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iabot/core-gateway/internal/auth"
	"github.com/iabot/core-gateway/internal/config"
	"github.com/iabot/core-gateway/internal/db"
	"github.com/iabot/core-gateway/internal/mcpserver"
	"github.com/iabot/core-gateway/internal/speech"
	"github.com/iabot/core-gateway/internal/upstream"
	"github.com/iabot/core-gateway/internal/voice"
	"github.com/iabot/core-gateway/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "iabot-core",
		Short:        "Chat, speech and voice gateway in front of a local model runtime",
		SilenceUsage: true,
		RunE:         runServe,
	}

	f := rootCmd.PersistentFlags()
	f.Int("port", 3000, "HTTP port")
	f.String("ollama-host", "http://ollama:11434", "base URL of the model runtime")
	f.String("model-name", upstream.FallbackModel, "default model")
	f.Int("access-token-expire-minutes", 30, "lifetime of issued access tokens")
	f.String("db-path", "/data/gateway.db", "path to the user database")
	f.String("voices-dir", "/data/voices", "directory for reference voice samples")
	f.String("tts-url", "", "text-to-speech engine URL (empty disables /tts)")
	f.String("stt-url", "", "speech-to-text engine URL (empty disables /stt)")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")

	// Viper keys use underscores so AutomaticEnv maps OLLAMA_HOST -> "ollama_host".
	// Secrets (API_SECRET, JWT_SECRET_KEY) are read from the environment only.
	for _, name := range []string{
		"port", "ollama-host", "model-name", "access-token-expire-minutes",
		"db-path", "voices-dir", "tts-url", "stt-url", "log-level", "log-format",
	} {
		_ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), f.Lookup(name))
	}
	viper.AutomaticEnv()

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway (default)",
		RunE:  runServe,
	}

	var password string
	useraddCmd := &cobra.Command{
		Use:   "useradd <username>",
		Short: "Create a login user, or reset its password and re-enable it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(cmd.Context(), args[0], password)
		},
	}
	useraddCmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")

	userdisableCmd := &cobra.Command{
		Use:   "userdisable <username>",
		Short: "Disable a login user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserDisable(cmd.Context(), args[0])
		},
	}

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List login users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUsers(cmd.Context())
		},
	}

	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Print a signed access token for username",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runToken(args[0], ttl)
		},
	}
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: access-token-expire-minutes)")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP stdio server exposing chat and list_models tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd, useraddCmd, userdisableCmd, usersCmd, tokenCmd, mcpCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("core gateway starting",
		"version", config.Version,
		"port", cfg.Port,
		"upstream", upstream.BaseURL(cfg.OllamaHost),
		"model", cfg.ModelName,
		"secret_auth", cfg.APISecret != "",
	)

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	verifier := auth.NewJWTVerifier([]byte(cfg.JWTSecret))
	gate := auth.NewGate(verifier, cfg.APISecret)
	issuer := auth.NewIssuer(database, verifier, cfg.TokenTTL())
	backend := upstream.New(cfg.OllamaHost, cfg.ModelName)

	opts := []web.ServerOption{
		web.WithLogger(logger),
		web.WithSpeech(speech.NewClient(cfg.TTSURL, nil), speech.NewClient(cfg.STTURL, nil)),
	}
	if store, err := voice.NewStore(cfg.VoicesDir); err != nil {
		logger.Warn("voice storage disabled", "dir", cfg.VoicesDir, "err", err)
	} else {
		opts = append(opts, web.WithVoices(store))
	}

	srv := web.New(&cfg, backend, gate, issuer, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runUserAdd(ctx context.Context, username, password string) error {
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	database, err := openDB(viper.GetString("db_path"))
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	if err := database.UpsertUser(ctx, username, hash); err != nil {
		return err
	}
	fmt.Printf("user %q saved\n", username)
	return nil
}

func runUserDisable(ctx context.Context, username string) error {
	database, err := openDB(viper.GetString("db_path"))
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	if err := database.SetUserDisabled(ctx, username, true); err != nil {
		return err
	}
	fmt.Printf("user %q disabled\n", username)
	return nil
}

func runUsers(ctx context.Context) error {
	database, err := openDB(viper.GetString("db_path"))
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	users, err := database.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		state := "active"
		if u.Disabled {
			state = "disabled"
		}
		fmt.Printf("%-24s %-8s %s\n", u.Username, state, u.CreatedAt)
	}
	return nil
}

func runToken(username string, ttl time.Duration) error {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if ttl <= 0 {
		ttl = cfg.TokenTTL()
	}
	tok, err := auth.NewJWTVerifier([]byte(cfg.JWTSecret)).Generate(username, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func runMCP(ctx context.Context) error {
	cfg := config.Load()
	// stdout carries the protocol, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))

	backend := upstream.New(cfg.OllamaHost, cfg.ModelName)
	return mcpserver.New(backend).Serve(ctx, os.Stdin, os.Stdout)
}

func openDB(path string) (*db.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
