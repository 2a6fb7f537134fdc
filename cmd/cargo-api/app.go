package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	shipmentsapi "github.com/BearBump/CargoDock/internal/api/shipments_api"
	"github.com/BearBump/CargoDock/internal/broker/messages"
	"github.com/BearBump/CargoDock/internal/realtime"
	"github.com/BearBump/CargoDock/internal/services/shipments"
)

type cargoAPIOpts struct {
	httpAddr      string
	capacityTopic string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runCargoAPI(ctx context.Context, opts cargoAPIOpts, svc *shipments.Service, hub *realtime.Hub, ws *realtime.WSServer, consumer kafkaConsumer) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Mount("/ws", ws.Handler())
	r.Mount("/api", shipmentsapi.New(svc).Routes())

	// Внешняя складская система шлёт ёмкость в kafka; мы только ретранслируем
	// её всем живым соединениям.
	go func() {
		slog.Info("kafka consumer started", "topic", opts.capacityTopic, "group", opts.consumerGroup)
		_ = consumer.Consume(ctx, func(_, value []byte) error {
			var m messages.WarehouseCapacityUpdated
			if err := json.Unmarshal(value, &m); err != nil {
				slog.Warn("skip malformed capacity message", "err", err)
				return nil
			}
			hub.WarehouseCapacity(m.Location, m.TotalCapacity, m.AvailableBins, m.UsedCapacity)
			return nil
		})
	}()

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
