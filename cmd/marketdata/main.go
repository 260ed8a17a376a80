// Command marketdata reads token market facts straight from Solana JSON-RPC.
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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solana-token-market/internal/api"
	"solana-token-market/internal/config"
	"solana-token-market/internal/market"
	"solana-token-market/internal/solana"
)

func main() {
	root := &cobra.Command{
		Use:          "marketdata",
		Short:        "On-chain market data for SPL tokens",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", config.DefaultRPC, "Solana RPC URL")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the market snapshot of a token",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().String("mint", "", "token mint address")
	snapshotCmd.Flags().Float64("supply", 0, "circulating supply used for market cap")
	_ = snapshotCmd.MarkFlagRequired("mint")
	root.AddCommand(snapshotCmd)

	lplockCmd := &cobra.Command{
		Use:   "lplock",
		Short: "Print the LP lock verdict of a token's pool",
		RunE:  runLPLock,
	}
	lplockCmd.Flags().String("mint", "", "token mint address")
	_ = lplockCmd.MarkFlagRequired("mint")
	root.AddCommand(lplockCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Refresh and print the native asset price in USD",
		RunE:  runPrice,
	}
	root.AddCommand(priceCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve market data over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg    config.Config
	logger *zap.Logger
	rpc    *solana.HTTPClient
	svc    *market.Service
}

func setup(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	rpc := solana.NewHTTPClient(cfg.RPCURL, solana.WithTimeout(cfg.RPCTimeout))
	svc := market.NewService(rpc, cfg.Market(), logger)

	return &app{cfg: cfg, logger: logger, rpc: rpc, svc: svc}, nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	mint, _ := cmd.Flags().GetString("mint")
	supply, _ := cmd.Flags().GetFloat64("supply")
	return printJSON(a.svc.GetMarketData(cmd.Context(), mint, supply))
}

func runLPLock(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	mint, _ := cmd.Flags().GetString("mint")
	return printJSON(a.svc.GetLpLockInfo(cmd.Context(), mint))
}

func runPrice(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	if err := a.svc.RefreshNativePrice(cmd.Context()); err != nil {
		a.logger.Warn("native price refresh failed, printing cached price", zap.Error(err))
	}
	return printJSON(api.NativePriceResponse{PriceUSD: a.svc.CurrentNativeAssetPrice()})
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           api.NewRouter(a.svc, a.logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server start", zap.String("addr", a.cfg.Addr), zap.String("rpc", a.rpc.Endpoint()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
