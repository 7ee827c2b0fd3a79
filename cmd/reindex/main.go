// Command reindex rebuilds the published index from the stored blog records.
// Run it against a stopped server when the index and the records disagree.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/sushihentaime/markpress/internal/blogservice"
	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

type config struct {
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	StorePath   string `mapstructure:"STORE_PATH"`
	DBHost      string `mapstructure:"POSTGRES_HOST"`
	DBPort      string `mapstructure:"POSTGRES_PORT"`
	DBUser      string `mapstructure:"POSTGRES_USER"`
	DBPassword  string `mapstructure:"POSTGRES_PASSWORD"`
	DBName      string `mapstructure:"POSTGRES_DB"`
}

func loadConfig(path string) (*config, error) {
	v := viper.New()
	v.SetDefault("STORE_DRIVER", kvstore.DriverBolt)
	v.SetDefault("STORE_PATH", "markpress.db")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_DB", "markpress")
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var c config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

func main() {
	configFile := flag.String("config", ".env", "dotenv file with the store settings")
	timeout := flag.Duration("timeout", 5*time.Minute, "abort the rebuild after this long")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dsn := ""
	if cfg.StoreDriver == kvstore.DriverPostgres {
		dsn = common.PostgresDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	}

	store, err := kvstore.Open(cfg.StoreDriver, cfg.StorePath, dsn)
	if err != nil {
		logger.Error("failed to open the store", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Rebuilding never resolves authors, so no author lookup is needed.
	report, err := blogservice.NewBlogService(store, nil).RebuildIndex(ctx)
	if err != nil {
		logger.Error("rebuild failed", slog.String("error", err.Error()))
		store.Close()
		os.Exit(1)
	}

	logger.Info("published index rebuilt",
		slog.String("driver", cfg.StoreDriver),
		slog.Int("scanned", report.Scanned),
		slog.Int("upserted", report.Upserted),
		slog.Int("drafts", report.Drafts),
		slog.Int("orphans", report.Orphans),
	)
}
