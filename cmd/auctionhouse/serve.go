package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"auctionhouse/internal/broadcast"
	"auctionhouse/internal/config"
	"auctionhouse/internal/events"
	"auctionhouse/internal/http/handlers"
	"auctionhouse/internal/repos"
	"auctionhouse/internal/services"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the auction closer and the optional broadcast server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

// sinks connects the configured event sinks. An unreachable sink is logged and skipped.
func sinks(ctx context.Context, cfg config.Config) ([]events.Publisher, func()) {
	var pubs []events.Publisher
	var closers []func()

	if cfg.RedisAddr != "" {
		p, err := events.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("[warn] redis disabled: %v", err)
		} else {
			pubs = append(pubs, p)
			closers = append(closers, func() { _ = p.Close() })
		}
	}
	if cfg.NatsURL != "" {
		p, err := events.NewNATSPublisher(ctx, cfg.NatsURL)
		if err != nil {
			log.Printf("[warn] nats disabled: %v", err)
		} else {
			pubs = append(pubs, p)
			closers = append(closers, p.Close)
		}
	}
	if cfg.MongoURI != "" {
		p, err := events.NewMongoHistory(ctx, cfg.MongoURI)
		if err != nil {
			log.Printf("[warn] mongo history disabled: %v", err)
		} else {
			pubs = append(pubs, p)
			closers = append(closers, func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = p.Close(cctx)
			})
		}
	}
	return pubs, func() {
		for _, c := range closers {
			c()
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, closeLog := loadConfig()
	defer closeLog()
	if servePort != "" {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	pubs, closeSinks := sinks(ctx, cfg)
	defer closeSinks()

	var hub *broadcast.Hub
	if cfg.BroadcastAddr != "" {
		hub = broadcast.NewHub()
		pubs = append(pubs, hub)
	}
	async := events.NewAsync(events.Fanout(pubs), 5*time.Second)
	defer async.Close()

	deps, err := handlers.NewDeps(db, cfg, async)
	if err != nil {
		return err
	}
	app := handlers.NewApp(deps, handlers.DefaultLimits)
	closer := &services.Closer{Lifecycle: deps.Lifecycle, Interval: cfg.CloseInterval}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[serve] api listening on :%s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	g.Go(func() error { return closer.Run(gctx) })

	if hub != nil {
		srv := &http.Server{
			Addr:              cfg.BroadcastAddr,
			Handler:           broadcast.NewHandler(hub).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			log.Printf("[serve] broadcast listening on %s", cfg.BroadcastAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	log.Printf("[serve] stopped")
	return err
}
