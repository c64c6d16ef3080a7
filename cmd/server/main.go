package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/ticket-booking/internal/bloom"
	"github.com/iliyamo/ticket-booking/internal/cache"
	"github.com/iliyamo/ticket-booking/internal/config"
	"github.com/iliyamo/ticket-booking/internal/database"
	"github.com/iliyamo/ticket-booking/internal/handler"
	"github.com/iliyamo/ticket-booking/internal/ledger"
	"github.com/iliyamo/ticket-booking/internal/lockstore"
	mw "github.com/iliyamo/ticket-booking/internal/middleware"
	"github.com/iliyamo/ticket-booking/internal/pool"
	"github.com/iliyamo/ticket-booking/internal/repository"
	"github.com/iliyamo/ticket-booking/internal/router"
	"github.com/iliyamo/ticket-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Primary (write) database.  Without it the core cannot do anything
	// useful, so a failed connection is fatal.  When reads share the primary
	// (no replica configured) its driver cap must cover both pools, or the
	// READ fill would starve behind the checked-out WRITE handles.
	sameBackend := cfg.DBReadHost == cfg.DBHost && cfg.DBReadPort == cfg.DBPort
	primaryMax := cfg.WritePoolSize
	if sameBackend {
		primaryMax += cfg.ReadPoolSize
	}
	primary, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, primaryMax)
	if err != nil {
		log.Fatalf("primary database: %v", err)
	}
	defer primary.Close()

	// Read replica.  A missing replica degrades, it does not stop the
	// service: reads just share the primary, whose cap is raised to make
	// room for them.
	replica := primary
	if !sameBackend {
		replica, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBReadHost, cfg.DBReadPort, cfg.DBName, cfg.ReadPoolSize)
		if err != nil {
			log.Printf("read replica unavailable, reads fall back to primary: %v", err)
			replica = primary
			primary.SetMaxOpenConns(cfg.WritePoolSize + cfg.ReadPoolSize)
			primary.SetMaxIdleConns(cfg.WritePoolSize + cfg.ReadPoolSize)
		} else {
			defer replica.Close()
		}
	}

	pools := pool.New(ctx, primary, replica, cfg.WritePoolSize, cfg.ReadPoolSize)
	defer pools.Close()

	seatRepo := repository.NewSeatRepo(pools)
	showRepo := repository.NewShowRepo(pools)
	bookingRepo := repository.NewBookingRepo(pools)

	gate := buildGate(ctx, cfg, seatRepo)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unreachable: caching and rate limiting disabled, reservations will fail per request")
	} else {
		defer rdb.Close()
	}
	store := lockstore.New(rdb)
	ledg := ledger.New(store, cfg.IdempotencyTTL)

	cacheCfg := config.LoadCacheConfig()
	var showCache handler.ShowCache
	if rdb != nil && cacheCfg.Enabled {
		showCache = cache.New(store, store,
			cache.WithLockTTL(cacheCfg.LockTTL),
			cache.WithRetry(cacheCfg.RetryAttempts, cacheCfg.RetryBackoff),
		)
	}

	publisher := service.NewPublisher(cfg.AMQPURL)
	if publisher.Enabled() {
		log.Printf("broker configured, payments hand off to the %q queue", "bookings")
	}

	catalog := handler.NewCatalogHandler(seatRepo, showRepo, showCache, cacheCfg.TTL)
	booking := handler.NewBookingHandler(gate, store, ledg, bookingRepo, publisher, cfg.SeatLockTTL)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	rlCfg := config.LoadRateLimitConfig()
	var counter mw.Counter
	if rdb != nil {
		counter = store
	}
	e.Use(mw.NewFixedWindow(rlCfg, counter))

	router.RegisterRoutes(e)
	router.RegisterAPI(e, catalog, booking)

	addr := ":" + cfg.Port
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

// buildGate loads every known seat id into a fresh admission filter sized
// for the current inventory plus spare capacity.  A failed load returns the
// permissive filter: admitting everything only costs the lock-store round
// trip the filter would have saved, while an empty filter would reject every
// valid seat.
func buildGate(ctx context.Context, cfg config.Config, seats *repository.SeatRepo) *bloom.Filter {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ids, err := seats.AllIDs(loadCtx)
	if err != nil {
		log.Printf("seat filter population failed, admitting all ids: %v", err)
		return bloom.NewPermissive()
	}
	f := bloom.New(len(ids)+cfg.BloomSpare, cfg.BloomFPRate)
	for _, id := range ids {
		f.Add(strconv.FormatUint(id, 10))
	}
	log.Printf("seat filter loaded: %d seats, %d bits, %d hashes", len(ids), f.Bits(), f.Hashes())
	return f
}
