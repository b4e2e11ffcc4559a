package events

import (
	"fmt"
	"strings"

	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/utils"
)

// NewBus creates a Bus instance based on configuration.
// Default is NATS if type is not specified.
func NewBus(cfg config.EventsConfig) (Bus, error) {
	busType := utils.BusType(strings.ToLower(cfg.Type))

	if busType == "" {
		busType = utils.BusTypeNATS
	}

	switch busType {
	case utils.BusTypeNATS:
		return newNATSBus(cfg.URL)

	case utils.BusTypeRedis:
		return newRedisBus(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case utils.BusTypeKafka:
		return newKafkaBus(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
		})

	case utils.BusTypeMemory:
		return NewMemoryBus(), nil

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s (supported: nats, redis, kafka, memory)", busType)
	}
}
