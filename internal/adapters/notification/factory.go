package notification

import (
	"fmt"
	"strings"

	"github.com/SscSPs/enrollment_engine/internal/platform/config"
)

// Supported values of NOTIFIER_DRIVERS.
const (
	DriverLog   = "log"
	DriverAMQP  = "amqp"
	DriverKafka = "kafka"
)

// NewFromConfig builds a Notifier publishing to every configured driver.
func NewFromConfig(cfg *config.Config) (*Notifier, error) {
	publishers := make([]Publisher, 0, len(cfg.NotifierDrivers))
	closeAll := func() {
		for _, p := range publishers {
			_ = p.Close()
		}
	}

	for _, driver := range cfg.NotifierDrivers {
		switch strings.ToLower(driver) {
		case DriverLog:
			publishers = append(publishers, NewLogPublisher())
		case DriverAMQP:
			if cfg.AMQPURL == "" {
				closeAll()
				return nil, fmt.Errorf("notifier driver %q requires AMQP_URL", driver)
			}
			p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
			if err != nil {
				closeAll()
				return nil, err
			}
			publishers = append(publishers, p)
		case DriverKafka:
			if len(cfg.KafkaBrokers) == 0 {
				closeAll()
				return nil, fmt.Errorf("notifier driver %q requires KAFKA_BROKERS", driver)
			}
			publishers = append(publishers, NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic))
		default:
			closeAll()
			return nil, fmt.Errorf("unknown notifier driver %q", driver)
		}
	}

	if len(publishers) == 1 {
		return NewNotifier(publishers[0]), nil
	}
	return NewNotifier(NewFanOut(publishers...)), nil
}
