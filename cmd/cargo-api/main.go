package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/CargoDock/config"
	"github.com/BearBump/CargoDock/internal/broker/kafka"
	"github.com/BearBump/CargoDock/internal/cache/rediscache"
	"github.com/BearBump/CargoDock/internal/realtime"
	"github.com/BearBump/CargoDock/internal/services/shipments"
	"github.com/BearBump/CargoDock/internal/storage/pgshipment"
	"github.com/BearBump/CargoDock/internal/workflow"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.CargoDock.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.CargoDock.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "cargo-api"
	}
	shipmentTopic := cfg.Kafka.ShipmentUpdatedTopicName
	if shipmentTopic == "" {
		shipmentTopic = "shipment.updated"
	}
	capacityTopic := cfg.Kafka.WarehouseCapacityTopicName
	if capacityTopic == "" {
		capacityTopic = "warehouse.capacity.updated"
	}
	cacheTTL := time.Duration(cfg.CargoDock.CurrentStatusTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	joinLimit := cfg.CargoDock.JoinRateLimitPerMinute
	if joinLimit <= 0 {
		joinLimit = 30
	}
	if cfg.CargoDock.JWTSecret == "" {
		panic("cargodock.jwt_secret is required")
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st, err := pgshipment.New(connString)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	limiter := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers, shipmentTopic)
	defer func() { _ = producer.Close() }()
	consumer := kafka.NewConsumer(brokers, capacityTopic, consumerGroup)
	defer func() { _ = consumer.Close() }()

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, nil)
	auth := realtime.NewAuthenticator(cfg.CargoDock.JWTSecret, nil)
	ws := realtime.NewWSServer(hub, auth, realtime.WSOptions{
		JoinLimiter:        limiter,
		JoinLimitPerMinute: int64(joinLimit),
	})

	svc := shipments.New(st, workflow.New(nil), hub, rc, producer, cacheTTL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runCargoAPI(ctx, cargoAPIOpts{
		httpAddr:      httpAddr,
		capacityTopic: capacityTopic,
		consumerGroup: consumerGroup,
	}, svc, hub, ws, consumer); err != nil && err != context.Canceled {
		panic(err)
	}
}
