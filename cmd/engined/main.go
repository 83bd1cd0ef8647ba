package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fairdraw/engine/internal/api"
	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
	"github.com/fairdraw/engine/internal/logger"
	"github.com/fairdraw/engine/internal/round"
	"github.com/fairdraw/engine/internal/seeds"
	"github.com/fairdraw/engine/internal/store"
	"github.com/fairdraw/engine/internal/verify"
)

var (
	listenAddr string
	dbPath     string
	configPath string
	maxRounds  uint64
	logLevel   string
)

func main() {
	// Local overrides; absence is not an error.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "engined",
		Short:         "Provably fair game outcome engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("ENGINE_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&dbPath, "db", envOr("ENGINE_DB", "engine.db"), "path to the SQLite database")
	root.PersistentFlags().StringVar(&configPath, "config", envOr("ENGINE_CONFIG", ""), "path to the game tables YAML (built-in defaults when empty)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP engine",
		RunE:  runServe,
	}
	serve.Flags().StringVar(&listenAddr, "listen", envOr("ENGINE_LISTEN", ":8080"), "listen address")
	serve.Flags().Uint64Var(&maxRounds, "max-rounds", 100_000, "rounds per seed pair before forced rotation (0 disables)")

	verifyCmd := &cobra.Command{
		Use:   "verify <round-id>",
		Short: "Replay a sealed round and print the verification report",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	verifyCmd.Flags().String("server-seed", "", "revealed server seed (read from the session when omitted)")

	seedHash := &cobra.Command{
		Use:   "seed-hash <server-seed>",
		Short: "Print the commitment hash for a server seed",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(engine.SeedHash(args[0]))
		},
	}

	root.AddCommand(serve, verifyCmd, seedHash)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Init(&logger.Options{Level: logger.ParseLevel(logLevel)})
	log := logger.L()

	tables, err := gameconfig.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load game tables: %w", err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	manager := seeds.NewManager(db, log, seeds.WithMaxRounds(maxRounds))
	coord := round.NewCoordinator(manager, db, db, tables, log)
	server := api.NewServer(manager, coord, tables, log)

	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("engine listening", "addr", listenAddr, "db", dbPath, "config_version", tables.Version)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger.Init(&logger.Options{Level: logger.ParseLevel(logLevel)})
	log := logger.L()

	tables, err := gameconfig.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load game tables: %w", err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	rec, err := db.GetRound(ctx, args[0])
	if err != nil {
		return err
	}

	serverSeed, _ := cmd.Flags().GetString("server-seed")
	if serverSeed == "" {
		sess, err := db.GetSession(ctx, rec.SessionID)
		if err != nil {
			return err
		}
		if !sess.Revealed {
			return fmt.Errorf("server seed for session %s not yet revealed; pass --server-seed", rec.SessionID)
		}
		serverSeed = sess.ServerSeed
	}

	report := verify.Verify(&rec, serverSeed, tables)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !report.OK {
		log.Warn("verification failed", "round_id", rec.RoundID, "mismatches", len(report.Mismatches))
		os.Exit(2)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
