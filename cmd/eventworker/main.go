package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"matchlink/internal/config"
	appKafka "matchlink/internal/kafka"
	kafkaHandlers "matchlink/internal/kafka/handlers"
	"matchlink/internal/storage"
)

// The event worker consumes invitation lifecycle events published by the API
// server and persists them to the invitation_events audit table.
func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("%s event worker configuration loaded.", cfg.AppName)

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	eventRepo := storage.NewGormInvitationEventRepository(db)
	consumerLogic := kafkaHandlers.NewInvitationEventConsumerLogic(eventRepo)

	consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down event worker...")
		cancel()
	}()

	topics := []string{cfg.Kafka.InvitationEventTopic}
	if err := consumer.Consume(ctx, topics, cfg.Kafka.ConsumerGroup, consumerLogic.HandleInvitationEvent); err != nil {
		log.Fatalf("Event worker consumer failed: %v", err)
	}
	log.Println("Event worker stopped.")
}
