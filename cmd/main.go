package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/go-chi/chi"
	"github.com/go-chi/docgen"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/sksmith/bunnyq"
	"github.com/sksmith/inventory-allocation/api"
	"github.com/sksmith/inventory-allocation/config"
	"github.com/sksmith/inventory-allocation/core/allocation"
	"github.com/sksmith/inventory-allocation/core/cartorder"
	"github.com/sksmith/inventory-allocation/core/inventory"
	"github.com/sksmith/inventory-allocation/db"
	"github.com/sksmith/inventory-allocation/db/cartrepo"
	"github.com/sksmith/inventory-allocation/db/idemstore"
	"github.com/sksmith/inventory-allocation/db/invrepo"
	"github.com/sksmith/inventory-allocation/db/memrepo"
	"github.com/sksmith/inventory-allocation/db/prodrepo"
	"github.com/sksmith/inventory-allocation/queue"
)

var printRoutes = flag.Bool("routes", false, "print the http routes and exit")

func main() {
	flag.Parse()
	ctx := context.Background()

	cfg := config.Load()

	configLogging(cfg)
	printLogHeader(cfg)
	cfg.Print()

	dbPool := configDatabase(ctx, cfg)
	bq := rabbit(cfg)

	app, err := newApplication(cfg, dbPool, configPublisher(bq), configIdempotency(ctx, cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create application")
	}

	if *printRoutes {
		docgen.PrintRoutes(app.router)
		return
	}

	if cfg.Inventory.CompactionInterval > 0 {
		log.Info().Dur("interval", cfg.Inventory.CompactionInterval).Msg("scheduling compaction...")
		go inventory.RunCompaction(ctx, app.inventory, cfg.Inventory.CompactionInterval)
	}

	if bq != nil {
		log.Info().Str("queue", cfg.RabbitMQ.Allocation.Queue).Msg("consuming allocation events...")
		allocQueue := queue.NewAllocationQueue(bq, app.publisher, cfg.RabbitMQ.Allocation.Queue, cfg.RabbitMQ.Allocation.Dlt.Exchange)
		go allocQueue.ConsumeAllocations(ctx, app.allocation)
	}

	log.Info().Str("port", cfg.Port).Msg("listening")
	log.Fatal().Err(http.ListenAndServe(":"+cfg.Port, app.router)).Send()
}

type application struct {
	router     chi.Router
	publisher  queue.Publisher
	inventory  inventory.Service
	allocation allocation.Service
}

// newApplication wires the repositories, services and router. A nil dbPool selects the in memory repositories.
func newApplication(cfg *config.Config, dbPool *pgxpool.Pool, publisher queue.Publisher, idempotency allocation.IdempotencyStore) (*application, error) {
	var invRepo inventory.Repository
	var productRepo allocation.ProductRepository
	var cartRepo cartorder.Repository

	if dbPool == nil {
		log.Info().Msg("using in memory repositories...")
		invRepo = memrepo.NewInventoryRepo()
		productRepo = memrepo.NewProductRepo()
		cartRepo = memrepo.NewCartOrderRepo()
	} else {
		invRepo = invrepo.NewPostgresRepo(dbPool)
		productRepo = prodrepo.NewPostgresRepo(dbPool)
		cartRepo = cartrepo.NewPostgresRepo(dbPool)
	}

	cached, err := prodrepo.NewCachedRepo(productRepo, cfg.Cache.ProductSize)
	if err != nil {
		return nil, err
	}

	log.Info().Str("strategy", cfg.Inventory.Strategy).Msg("creating inventory service...")
	kind, err := inventory.ParseStrategyKind(cfg.Inventory.Strategy)
	if err != nil {
		return nil, err
	}
	facade, err := inventory.NewFacade(kind, invRepo)
	if err != nil {
		return nil, err
	}
	invQueue := queue.NewInventoryQueue(publisher, cfg.RabbitMQ.Inventory.Exchange)
	invService := inventory.NewService(invRepo, facade, invQueue)

	log.Info().Msg("creating allocation service...")
	notifier := queue.NewIndexNotifier(publisher, cfg.RabbitMQ.Index.Exchange)
	allocService := allocation.NewService(invService, cached, nil, notifier, idempotency)

	log.Info().Msg("creating cart order service...")
	cartService := cartorder.NewService(cartRepo)

	log.Info().Msg("configuring router...")
	r := api.ConfigureRouter(cfg, invService, allocService, cartService)

	return &application{
		router:     r,
		publisher:  publisher,
		inventory:  invService,
		allocation: allocService,
	}, nil
}

func configPublisher(bq *bunnyq.BunnyQ) queue.Publisher {
	if bq == nil {
		log.Info().Msg("creating mock queue...")
		return queue.NewMockPublisher()
	}
	return queue.NewBunnyPublisher(bq)
}

func configIdempotency(ctx context.Context, cfg *config.Config) allocation.IdempotencyStore {
	if cfg.Redis.Enabled {
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connecting to redis...")
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Pass})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis is not reachable yet, duplicate events may be processed until it is")
		}
		return idemstore.NewRedisStore(client, cfg.Redis.TTL)
	}

	store, err := idemstore.NewLocalStore(cfg.Cache.IdempotencySize, cfg.Redis.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create idempotency store")
	}
	return store
}

func rabbit(cfg *config.Config) *bunnyq.BunnyQ {
	if cfg.RabbitMQ.Mock {
		return nil
	}

	log.Info().Str("host", cfg.RabbitMQ.Host).Msg("connecting to rabbitmq...")
	osChannel := make(chan os.Signal, 1)
	signal.Notify(osChannel, syscall.SIGTERM)

	return bunnyq.New(context.Background(),
		bunnyq.Address{
			User: cfg.RabbitMQ.User,
			Pass: cfg.RabbitMQ.Pass,
			Host: cfg.RabbitMQ.Host,
			Port: cfg.RabbitMQ.Port,
		},
		osChannel,
		bunnyq.LogHandler(logger{}),
	)
}

type logger struct {
}

func (l logger) Log(_ context.Context, level bunnyq.LogLevel, msg string, data map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case bunnyq.LogLevelTrace:
		evt = log.Trace()
	case bunnyq.LogLevelDebug:
		evt = log.Debug()
	case bunnyq.LogLevelInfo:
		evt = log.Info()
	case bunnyq.LogLevelWarn:
		evt = log.Warn()
	case bunnyq.LogLevelError:
		evt = log.Error()
	default:
		evt = log.Info()
	}

	for k, v := range data {
		evt.Interface(k, v)
	}

	evt.Msg(msg)
}

func printLogHeader(cfg *config.Config) {
	if cfg.Log.Structured {
		log.Info().Str("application", cfg.AppName).
			Str("revision", cfg.Revision).
			Str("version", cfg.AppVersion).
			Str("sha1ver", cfg.Sha1Version).
			Str("build-time", cfg.BuildTime).
			Str("profile", cfg.Profile).
			Str("config-source", cfg.Config.Source).
			Str("config-branch", cfg.Config.Spring.Branch).
			Str("strategy", cfg.Inventory.Strategy).
			Send()
	} else {
		f := figure.NewFigure(cfg.AppName, "", true)
		f.Print()

		log.Info().Msg("=============================================")
		log.Info().Msg(fmt.Sprintf("       Revision: %s", cfg.Revision))
		log.Info().Msg(fmt.Sprintf("        Profile: %s", cfg.Profile))
		log.Info().Msg(fmt.Sprintf("  Config Server: %s - %s", cfg.Config.Source, cfg.Config.Spring.Branch))
		log.Info().Msg(fmt.Sprintf("    Tag Version: %s", cfg.AppVersion))
		log.Info().Msg(fmt.Sprintf("   Sha1 Version: %s", cfg.Sha1Version))
		log.Info().Msg(fmt.Sprintf("     Build Time: %s", cfg.BuildTime))
		log.Info().Msg(fmt.Sprintf("       Strategy: %s", cfg.Inventory.Strategy))
		log.Info().Msg("=============================================")
	}
}

func configDatabase(ctx context.Context, cfg *config.Config) (dbPool *pgxpool.Pool) {
	if cfg.Db.InMemory {
		return nil
	}

	log.Info().Str("host", cfg.Db.Host).Str("name", cfg.Db.Name).Msg("connecting to the database...")
	var err error

	if cfg.Db.Migrate {
		log.Info().Msg("executing migrations")

		if err = db.RunMigrations(
			cfg.Db.Host,
			cfg.Db.Name,
			cfg.Db.Port,
			cfg.Db.User,
			cfg.Db.Pass,
			cfg.Db.Clean); err != nil {
			log.Warn().Err(err).Msg("error executing migrations")
		}
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		cfg.Db.Host, cfg.Db.Port, cfg.Db.User, cfg.Db.Pass, cfg.Db.Name)

	for {
		dbPool, err = db.ConnectDb(ctx, connStr, db.MinPoolConns(cfg.Db.Pool.MinSize), db.MaxPoolConns(cfg.Db.Pool.MaxSize))
		if err != nil {
			log.Error().Err(errors.WithMessage(err, "failed to create connection pool")).Msg("retrying")
			time.Sleep(1 * time.Second)
			continue
		}
		break
	}

	return dbPool
}

func configLogging(cfg *config.Config) {
	log.Info().Msg("configuring logging...")

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	if !cfg.Log.Structured {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("loglevel", cfg.Log.Level).Err(err).Msg("defaulting to info")
		level = zerolog.InfoLevel
	}
	log.Info().Str("loglevel", level.String()).Msg("setting log level")
	zerolog.SetGlobalLevel(level)
}
