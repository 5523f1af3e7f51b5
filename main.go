package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"example.com/minitweet/cmd/server"
	"example.com/minitweet/cmd/worker"
	appkafka "example.com/minitweet/internal/broker"
	config "example.com/minitweet/internal/init"
	"example.com/minitweet/internal/logger"
	"example.com/minitweet/internal/service"
	"example.com/minitweet/internal/store"
	"example.com/minitweet/internal/token"
)

func main() {
	// Initialize application configuration
	cfg := config.Init()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Printf("unknown LOG_LEVEL %q, keeping info", cfg.LogLevel)
	}
	logg := logger.New()
	defer logg.Sync()

	// Initialize store (Cassandra runs migrations on connect)
	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer st.Close()

	// Configure Kafka client parameters
	kafkaCfg := appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		Partition:    cfg.KafkaPartition,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run application depending on selected mode
	switch cfg.Mode {
	case "server":
		opts := service.Options{}
		switch {
		case !cfg.EventsEnabled:
			logg.Info("main", "Activity events disabled")
		case cfg.StoreDriver == config.DriverMemory:
			// No worker process can read the in-memory store, so record activity here.
			logg.Info("main", "Recording activity in-process")
			opts.Events = worker.NewLocal(st)
		default:
			kafkaWriter, err := appkafka.NewKafkaWriter(kafkaCfg)
			if err != nil {
				log.Fatalf("Kafka writer init failed: %v", err)
			}
			defer kafkaWriter.Close()
			opts.Events = appkafka.NewPublisher(kafkaWriter)
		}

		tokens := token.New(cfg.JWTSecret, cfg.JWTTTL)
		svc := service.New(st, tokens, opts)
		server.Run(ctx, svc, tokens, cfg)
	case "worker":
		// Start the worker that turns events into activity log entries
		kafkaReader := appkafka.NewKafkaReader(kafkaCfg)
		w := worker.New(st, kafkaReader, 0, 0)
		w.Run(ctx)
		if err := w.Close(); err != nil {
			logg.Error("main", "Worker close failed", err)
		}
	}

	logg.Info("main", "Shutdown completed")
}
