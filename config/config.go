// Package config loads the monitor configuration from CLI flags, with an
// optional YAML file overriding the defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Account nicknames the on-disk stores, so several accounts can share
	// one data directory.
	Account string
	// DataDir is the root folder for the ledger journal, preferences and
	// CSV exports.
	DataDir string
	// Markets limits the sync to explicit symbols. Empty means every
	// active market the exchange lists.
	Markets []string

	Sync      bool
	Monitor   bool
	Export    bool
	ForceAll  bool
	AssumeYes bool

	// Blacklist management commands, applied before any sync. The special
	// tokens ALL and NONE expand to every known market / clear the list.
	AddBlacklist    []string
	RemoveBlacklist []string
	// ReplaceBlacklist swaps the entire blacklist for the given symbols,
	// applied before the add/remove commands.
	ReplaceBlacklist []string
}

type fileConfig struct {
	Account string   `yaml:"account"`
	DataDir string   `yaml:"data_dir"`
	Markets []string `yaml:"markets"`
}

// Get parses flags (and the YAML file named by -config, when given) into a
// Config.
func Get() (Config, error) {
	var (
		configPath   = flag.String("config", "", "path to yaml config")
		account      = flag.String("account", "default", "account nickname, keys the on-disk stores")
		dataDir      = flag.String("datadir", "", "data directory (default ~/.binance-monitor)")
		markets      = flag.String("markets", "", "comma-separated symbols to sync, empty for all active")
		doSync       = flag.Bool("sync", false, "pull full trade history")
		doMonitor    = flag.Bool("monitor", false, "follow live account updates")
		doExport     = flag.Bool("export", false, "export the ledger to csv")
		forceAll     = flag.Bool("all", false, "sync every market regardless of blacklist")
		assumeYes    = flag.Bool("yes", false, "answer confirmation prompts with yes")
		addBlack     = flag.String("blacklist", "", "comma-separated symbols to blacklist (ALL for every known market)")
		removeBlack  = flag.String("unblacklist", "", "comma-separated symbols to remove from the blacklist (NONE clears it)")
		replaceBlack = flag.String("setblacklist", "", "replace the blacklist with these comma-separated symbols")
	)
	flag.Parse()

	cfg := Config{
		Account:   *account,
		DataDir:   *dataDir,
		Sync:      *doSync,
		Monitor:   *doMonitor,
		Export:    *doExport,
		ForceAll:  *forceAll,
		AssumeYes: *assumeYes,
	}
	cfg.Markets = splitList(*markets)
	cfg.AddBlacklist = splitList(*addBlack)
	cfg.RemoveBlacklist = splitList(*removeBlack)
	cfg.ReplaceBlacklist = splitList(*replaceBlack)

	if *configPath != "" {
		if err := cfg.applyFile(*configPath); err != nil {
			return Config{}, err
		}
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".binance-monitor")
	}
	if cfg.Account == "" {
		cfg.Account = "default"
	}

	if !cfg.Sync && !cfg.Monitor && !cfg.Export &&
		len(cfg.AddBlacklist) == 0 && len(cfg.RemoveBlacklist) == 0 &&
		len(cfg.ReplaceBlacklist) == 0 {
		return Config{}, fmt.Errorf("nothing to do: pass -sync, -monitor, -export or a blacklist command")
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	if fc.Account != "" {
		c.Account = fc.Account
	}
	if fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	if len(fc.Markets) > 0 {
		c.Markets = fc.Markets
	}

	return nil
}

// PreferencesPath is the preferences document location.
func (c Config) PreferencesPath() string {
	return filepath.Join(c.DataDir, "preferences.yaml")
}

// LedgerDir is the per-account ledger journal directory.
func (c Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "account_data", c.Account)
}

// ExportPath is the per-account CSV export location.
func (c Config) ExportPath() string {
	return filepath.Join(c.DataDir, "account_data", c.Account+".csv")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
