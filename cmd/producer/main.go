package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"log"
	"math/rand"
	"orderconsumer/internal/codec"
	"orderconsumer/internal/config"
	"orderconsumer/internal/db"
	"orderconsumer/internal/interfaces"
	"orderconsumer/internal/kafka"
	"orderconsumer/internal/lookup"
	"orderconsumer/internal/models"
	"os"
	"time"
)

func generateOrder() *models.ItemOrdered {
	id := rand.Intn(100000000)

	return &models.ItemOrdered{
		Reference: fmt.Sprintf("ORD-%06d-%06d", id/1000000, id%1000000),
		OrderedAt: time.Now().Format(models.OrderedAtLayout),
		OrderedBy: models.OrderedBy{
			Email: "demo@ch.gov.uk",
			ID:    fmt.Sprintf("user%08d", id),
		},
		PaymentReference: fmt.Sprintf("PAY%08d", id),
		TotalOrderCost:   "3",
		Item: models.Item{
			ID:                    fmt.Sprintf("MID-%06d-%06d", id/1000000, id%1000000),
			CompanyName:           "THE COMPANY",
			CompanyNumber:         fmt.Sprintf("%08d", id%100000000),
			CustomerReference:     "missing image",
			Description:           "missing image delivery for company",
			DescriptionIdentifier: "missing-image-delivery",
			DescriptionValues: map[string]string{
				"company_number": fmt.Sprintf("%08d", id%100000000),
			},
			ItemCosts: []models.ItemCosts{
				{
					DiscountApplied: "0",
					ItemCost:        "3",
					CalculatedCost:  "3",
					ProductType:     "missing-image-delivery-accounts",
				},
			},
			ItemOptions: map[string]string{
				models.OptionFilingHistoryCategory:    "accounts",
				models.OptionFilingHistoryDate:        "2015-05-26",
				models.OptionFilingHistoryDescription: "accounts-with-accounts-type-full",
				models.OptionFilingHistoryType:        "AA",
			},
			ItemURI:       fmt.Sprintf("/orderable/missing-image-deliveries/MID-%08d", id),
			Kind:          "item#missing-image-delivery",
			Links:         models.Links{Self: fmt.Sprintf("/orderable/missing-image-deliveries/MID-%08d", id)},
			PostageCost:   "0",
			Quantity:      1,
			TotalItemCost: "3",
		},
	}
}

// A seeder stores entity ids where the consumer looks them up
type seeder interface {
	Upsert(ctx context.Context, collection, key, field, value string) error
}

// newSeeder opens the configured lookup backend
func newSeeder(ctx context.Context, cfg *config.Config) (seeder, func(), error) {
	switch cfg.Lookup.Backend {
	case config.LookupRedis:
		store, err := lookup.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		database, err := db.NewDBWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return db.NewLookupRepo(database), database.Close, nil
	}
}

func main() {
	godotenv.Load("deployments/.env")

	configPath := flag.String("config", "config/config.yml", "Path to the configuration file")
	count := flag.Int("count", 1, "Number of orders")
	seed := flag.Bool("seed", false, "Store an entity id for every order in the lookup table")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	topic := cfg.Kafka.MainTopic
	if env := os.Getenv("KAFKA_TOPIC"); env != "" {
		topic = env
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "producer").Logger()

	avroCodec, err := codec.NewAvroCodec()
	if err != nil {
		log.Fatalf("Failed to initialize Avro codec: %v", err)
	}

	producer := kafka.NewProducer(cfg.Kafka.BrokerList(), cfg.Kafka.PublishTimeout, &logger)
	defer func(producer *kafka.Producer) {
		err := producer.Close()
		if err != nil {
			log.Printf("Error in closing producer")
		}
	}(producer)

	ctx := context.Background()

	var store seeder
	if *seed {
		var closeStore func()
		store, closeStore, err = newSeeder(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to open %s lookup store: %v", cfg.Lookup.Backend, err)
		}
		defer closeStore()
	}

	for i := range *count {
		order := generateOrder()

		if store != nil {
			entityID := uuid.NewString()
			if err := store.Upsert(ctx, cfg.Lookup.Collection, order.PaymentReference, cfg.Lookup.Field, entityID); err != nil {
				log.Printf("Failed to seed entity id for order %d: %v", i+1, err)
			}
		}

		data, err := avroCodec.Encode(order)
		if err != nil {
			log.Printf("Failed to encode order %d: %v", i+1, err)
			continue
		}

		err = producer.Publish(
			ctx, interfaces.OutboundMessage{
				Topic: topic,
				Key:   []byte(order.LogicalID()),
				Value: data,
				Time:  time.Now(),
			},
		)

		if err != nil {
			log.Printf("Failed to send order %d: %v", i+1, err)
		} else {
			fmt.Printf("Sent order: %s\n", order.LogicalID())
		}
	}
}
