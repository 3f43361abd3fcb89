package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/Silicom-11/synaplink-engine/internal/adapters/mongo"
	"github.com/Silicom-11/synaplink-engine/internal/adapters/rabbit"
	redisadapter "github.com/Silicom-11/synaplink-engine/internal/adapters/redis"
	"github.com/Silicom-11/synaplink-engine/internal/clock"
	"github.com/Silicom-11/synaplink-engine/internal/config"
	"github.com/Silicom-11/synaplink-engine/internal/history"
	httphandler "github.com/Silicom-11/synaplink-engine/internal/http"
	"github.com/Silicom-11/synaplink-engine/internal/observability"
	"github.com/Silicom-11/synaplink-engine/internal/ratelimit"
	"github.com/Silicom-11/synaplink-engine/internal/registry"
	"github.com/Silicom-11/synaplink-engine/internal/reservation"
	"github.com/Silicom-11/synaplink-engine/internal/store"
	"github.com/Silicom-11/synaplink-engine/internal/store/postgres"
)

// defaultVenues seeds the catalog and the registry when Mongo is not
// configured or the catalog is still empty.
var defaultVenues = []mongoadapter.VenueDoc{
	{
		ID:           "silicom",
		Name:         "Silicom Lan Center",
		Address:      "Av. Real 1234, Huancayo, Junín",
		Description:  "El mejor lugar para gamers profesionales",
		Specs:        []string{"Intel i7 12700K", "RTX 3070", "16GB RAM", "Monitor 144Hz"},
		Facilities:   []string{"Wi-Fi Gratis", "Aire Acondicionado", "Snacks & Bebidas", "Estacionamiento"},
		CabinNumbers: []int{1, 2, 3, 4, 5, 6, 7, 8},
	},
	{
		ID:           "linux",
		Name:         "Linux Cybercafé",
		Address:      "Jr. Tecnología 456, El Tambo",
		Description:  "Tecnología de punta y ambiente gamer",
		Specs:        []string{"Intel i5 12400F", "RTX 3060", "16GB RAM", "Monitor 120Hz"},
		Facilities:   []string{"Wi-Fi Gratis", "Ventilación", "Snacks", "Seguridad 24/7"},
		CabinNumbers: []int{1, 2, 3, 4, 5, 6},
	},
	{
		ID:           "shadow",
		Name:         "ShadowLAN",
		Address:      "Av. Gamer Pro 789, Chilca",
		Description:  "Experiencia gaming de alto nivel",
		Specs:        []string{"Intel i9 13900K", "RTX 4080", "32GB RAM", "Monitor 240Hz"},
		Facilities:   []string{"Wi-Fi Gigabit", "Climatizado", "Cafetería", "Streaming Setup"},
		CabinNumbers: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOtel, err := observability.SetupOTel(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()
	clk := clock.NewSystem()

	var st store.ReservationStore = store.NewMemory()
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		pgStore := postgres.NewStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to ensure schema: %v", err)
		}
		st = pgStore
	}

	var catalog *mongoadapter.VenueCatalog
	engineOpts := []reservation.Option{reservation.WithHoldTTL(cfg.HoldTTL)}
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(ctx)
		mongoDB := mongoClient.Database("synaplink")
		catalog = mongoadapter.NewVenueCatalog(mongoDB, logger)
		engineOpts = append(engineOpts, reservation.WithAuditor(mongoadapter.NewAuditLogger(mongoDB, logger)))
	}

	reg := registry.New()
	namer := provisionVenues(ctx, reg, catalog, logger)

	var idemp *redisadapter.Idempotency
	var rl *ratelimit.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		idemp = redisadapter.NewIdempotency(redisClient, cfg.IdempotencyTTL)
		rl = ratelimit.NewRateLimiter(redisadapter.NewCache(redisClient))
	}

	if cfg.RabbitURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitConn.Close()
		rabbitPub, err := rabbit.NewPublisher(rabbitConn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		reg.SetNotifier(rabbit.NewCabinNotifier(rabbitPub, logger))
	}

	engine := reservation.NewService(reg, st, clk, logger, engineOpts...)
	agg := history.NewAggregator(st, namer)

	sweeper := reservation.NewSweeper(engine, clk, logger, cfg.ExpirySweepInterval, cfg.CompletionSweepInterval)
	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("sweeper stopped")
		}
	}()

	handlers := httphandler.NewHandlers(engine, reg, agg, catalog, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}

// provisionVenues loads the venue inventory into the registry, seeding
// the catalog with the built-in venues when it is empty, and returns
// the venue namer the history search uses.
func provisionVenues(ctx context.Context, reg *registry.Registry, catalog *mongoadapter.VenueCatalog, logger observability.Logger) history.VenueNamer {
	if catalog == nil {
		names := staticNamer{}
		for _, v := range defaultVenues {
			reg.Provision(v.ID, v.CabinNumbers)
			names[v.ID] = v.Name
		}
		return names
	}

	venues, err := catalog.ListVenues(ctx)
	if err != nil {
		log.Fatalf("failed to list venues: %v", err)
	}
	if len(venues) == 0 {
		for _, v := range defaultVenues {
			if err := catalog.UpsertVenue(ctx, v); err != nil {
				log.Fatalf("failed to seed venue %s: %v", v.ID, err)
			}
		}
		venues = defaultVenues
		logger.Info("seeded venue catalog with built-in venues")
	}
	for _, v := range venues {
		reg.Provision(v.ID, v.CabinNumbers)
	}
	return catalog
}

type staticNamer map[string]string

func (n staticNamer) VenueName(_ context.Context, venueID string) (string, error) {
	return n[venueID], nil
}
