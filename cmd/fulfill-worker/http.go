package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coolrevive/corefulfill/config"
	"github.com/coolrevive/corefulfill/internal/services/inventory"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	feed *inventory.Feed
	cfg  *config.Config
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8081"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.feed == nil {
			_, _ = w.Write([]byte(`{"error":"feed not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.feed.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Только операционные настройки, без секретов.
		out := map[string]any{
			"warehouseId":             opts.cfg.Fulfill.WarehouseID,
			"conveyanceUnit":          opts.cfg.Fulfill.ConveyanceUnit,
			"pickStartSchedule":       opts.cfg.Fulfill.PickStartSchedule,
			"pickCompleteSchedule":    opts.cfg.Fulfill.PickCompleteSchedule,
			"missionStartSchedule":    opts.cfg.Fulfill.MissionStartSchedule,
			"missionCompleteSchedule": opts.cfg.Fulfill.MissionCompleteSchedule,
			"feedPollIntervalSeconds": opts.cfg.Fulfill.FeedPollIntervalSeconds,
			"feedBatchSize":           opts.cfg.Fulfill.FeedBatchSize,
			"contactCacheTTLSeconds":  opts.cfg.Fulfill.ContactCacheTTLSeconds,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.feed == nil {
			_, _ = w.Write([]byte(`{"error":"feed not wired"}`))
			return
		}
		opts.feed.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
