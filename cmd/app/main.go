package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sushihentaime/markpress/internal/blogservice"
	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/identity"
	"github.com/sushihentaime/markpress/internal/kvstore"
	"github.com/sushihentaime/markpress/internal/mailservice"
	"github.com/sushihentaime/markpress/internal/tagservice"
	"github.com/sushihentaime/markpress/internal/userservice"
)

type application struct {
	config      *Config
	logger      *slog.Logger
	metrics     *metrics
	identity    *identity.Provider
	userService *userservice.UserService
	blogService *blogservice.BlogService
	tagService  *tagservice.TagService
}

// newApplication wires the services over a single store. The user and blog
// services depend on each other, so the blog counter is bound late.
func newApplication(cfg *Config, logger *slog.Logger, store kvstore.Store, mb common.MessageProducer) *application {
	ids := identity.NewProvider(store, identity.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL))
	c := common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL)

	var blogs *blogservice.BlogService
	counter := userservice.BlogCounterFunc(func(ctx context.Context, userID string) (int, error) {
		return blogs.CountPublished(ctx, userID)
	})

	users := userservice.NewUserService(store, ids, mb, c, counter, logger)
	blogs = blogservice.NewBlogService(store, users)

	return &application{
		config:      cfg,
		logger:      logger,
		metrics:     newMetrics(),
		identity:    ids,
		userService: users,
		blogService: blogs,
		tagService:  tagservice.NewTagService(blogs),
	}
}

func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = ".env"
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)

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

	var producer common.MessageProducer = common.DiscardProducer{}

	// The broker is optional. Without it signups are not announced and no
	// welcome email is sent.
	if cfg.MQHost != "" {
		broker, err := common.NewMessageBroker(cfg.rabbitMQURI())
		if err != nil {
			logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer broker.Close()

		err = common.SetupUserExchange(broker)
		if err != nil {
			logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
			os.Exit(1)
		}

		producer = broker

		mailService := mailservice.NewMailService(broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.MailPort, logger)
		mailService.SendWelcomeEmail()
		defer mailService.Close()
	}

	app := newApplication(cfg, logger, store, producer)

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
