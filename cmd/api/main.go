package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/clock"
	"DutchAuction/internal/config"
	"DutchAuction/internal/db"
	"DutchAuction/internal/escrow"
	internalhttp "DutchAuction/internal/http"
	"DutchAuction/internal/permit"
	"DutchAuction/internal/services"
	"DutchAuction/internal/store"
	"DutchAuction/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)
	funds := &store.PGLedger{Store: st}
	nfts := &store.PGNFTRegistry{Store: st}
	deriver := escrow.XPubDeriver{XPub: cfg.Escrow.XPub, Prefix: cfg.Escrow.Bech32Prefix}
	steps := clock.IntervalClock{
		Genesis:      time.Unix(cfg.Clock.GenesisUnix, 0),
		StepInterval: time.Duration(cfg.Clock.StepSeconds) * time.Second,
	}

	hub := internalhttp.NewHub()
	auctionSvc := &services.AuctionService{
		Registry:    auction.NewRegistry(),
		Escrow:      escrow.New(funds, nfts, deriver),
		Ledger:      funds,
		Steps:       steps,
		Permits:     &permit.Verifier{Nonces: st, Steps: steps},
		Settlements: st,
		Events:      hub,
		NativeDenom: cfg.Auctions.NativeDenom,
	}

	h := internalhttp.NewHandler(auctionSvc, st, hub)
	srv := internalhttp.NewServer(h)

	// The relayer shares the process with the API: auction state machines
	// live in memory, and a second process could not serialize against them.
	relayer := &worker.Relayer{
		Queue:     st,
		Auctions:  auctionSvc,
		Interval:  time.Duration(cfg.Relayer.IntervalSeconds) * time.Second,
		BatchSize: cfg.Relayer.BatchSize,
	}
	relayerCtx, cancelRelayer := context.WithCancel(ctx)
	defer cancelRelayer()
	go relayer.Run(relayerCtx)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
