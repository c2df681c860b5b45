// Command binance-monitor keeps a tax-accounting ledger of an account's
// trading activity: it pulls full trade history, follows live execution
// reports, and exports the canonical ledger as CSV.
//
// Usage:
//
//	binance-monitor -sync            pull trade history for all active markets
//	binance-monitor -monitor         follow live fills until interrupted
//	binance-monitor -sync -monitor -export
//	binance-monitor -blacklist DOGEBTC,XRPBTC
//	binance-monitor -setblacklist DOGEBTC
//	binance-monitor -unblacklist NONE
//
// Required environment variables: BINANCE_API_KEY, BINANCE_API_SECRET.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anson-vandoren/binance-monitor/config"
	"github.com/anson-vandoren/binance-monitor/internal"
	"github.com/anson-vandoren/binance-monitor/internal/clients"
	"github.com/anson-vandoren/binance-monitor/internal/services/exchange"
	"github.com/anson-vandoren/binance-monitor/internal/services/history"
	"github.com/anson-vandoren/binance-monitor/internal/services/monitor"
	"github.com/anson-vandoren/binance-monitor/internal/setup"
	"github.com/anson-vandoren/binance-monitor/internal/storage/prefs"
	"github.com/anson-vandoren/binance-monitor/internal/storage/trades"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	apiKey := os.Getenv("BINANCE_API_KEY")
	apiSecret := os.Getenv("BINANCE_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, apiKey, apiSecret, logger); err != nil {
		logger.Fatal("monitor failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, apiKey, apiSecret string, logger *zap.Logger) error {
	setup.PrintHeader("BINANCE MONITOR")

	client := clients.NewBinanceClient(apiKey, apiSecret, logger)

	preferences, err := prefs.Open(cfg.PreferencesPath(), logger)
	if err != nil {
		return err
	}

	ledger, err := trades.NewWALStore(cfg.LedgerDir(), logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	var confirmer prefs.Confirmer = setup.ConsoleConfirmer{}
	if cfg.AssumeYes {
		confirmer = setup.AutoConfirmer{Answer: true}
	}

	var info *exchange.Info
	needExchangeInfo := cfg.Sync || hasToken(cfg.AddBlacklist, "ALL")
	if needExchangeInfo {
		info, err = exchange.Load(ctx, client, logger)
		if err != nil {
			return err
		}
	}

	if err := applyBlacklistCommands(cfg, preferences, info, confirmer); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Sync {
		g.Go(func() error {
			fetcher := history.NewFetcher(client, info, logger)
			syncer := internal.NewSyncer(fetcher, ledger, preferences, confirmer, logger)

			candidates := cfg.Markets
			if len(candidates) == 0 {
				candidates = info.ActiveSymbols()
			}
			return syncer.SyncAll(gctx, candidates, cfg.ForceAll, setup.PrintSyncProgress)
		})
	}

	if cfg.Monitor {
		g.Go(func() error {
			m := monitor.New(client, ledger, preferences, confirmer, logger)
			logger.Info("starting account monitor, press Ctrl+C to exit")
			return m.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	if cfg.Export {
		if err := ledger.ExportCSV(cfg.ExportPath()); err != nil {
			return err
		}
		logger.Info("ledger exported",
			zap.String("path", cfg.ExportPath()),
			zap.Int("trades", ledger.Len()))
	}

	return nil
}

// applyBlacklistCommands runs the explicit blacklist mutations before any
// sync. ALL expands to every listed market, active or not; NONE clears the
// blacklist. Both require confirmation.
func applyBlacklistCommands(cfg config.Config, preferences *prefs.Store, info *exchange.Info, confirmer prefs.Confirmer) error {
	if len(cfg.ReplaceBlacklist) > 0 {
		ok, err := confirmer.Confirm("Replace the entire blacklist?")
		if err != nil {
			return err
		}
		if ok {
			if err := preferences.SetBlacklist(cfg.ReplaceBlacklist); err != nil {
				return err
			}
		}
	}

	if len(cfg.AddBlacklist) > 0 {
		symbols := cfg.AddBlacklist
		if hasToken(symbols, "ALL") {
			ok, err := confirmer.Confirm("Blacklist every known market (active and inactive)?")
			if err != nil {
				return err
			}
			symbols = nil
			if ok {
				symbols = info.AllSymbols()
			}
		}
		if len(symbols) > 0 {
			if err := preferences.Exclude(symbols); err != nil {
				return err
			}
		}
	}

	if len(cfg.RemoveBlacklist) > 0 {
		if hasToken(cfg.RemoveBlacklist, "NONE") {
			ok, err := confirmer.Confirm("Clear the entire blacklist?")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return preferences.Clear()
		}
		return preferences.Include(cfg.RemoveBlacklist)
	}

	return nil
}

func hasToken(symbols []string, token string) bool {
	for _, s := range symbols {
		if s == token {
			return true
		}
	}
	return false
}
