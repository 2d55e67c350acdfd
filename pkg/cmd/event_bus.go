package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/vetsuite/vetflow/pkg/channels/gochannel"
	"github.com/vetsuite/vetflow/pkg/channels/kafka"
	"github.com/vetsuite/vetflow/pkg/eventbus"
)

// NewEventBus builds the event bus for the given provider. The gochannel
// provider is in-process and suits single-binary deployments; kafka connects
// to the brokers named by KAFKA_BROKERS.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger)
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
