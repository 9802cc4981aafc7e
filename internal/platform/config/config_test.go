package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, 10*time.Second, cfg.StatementTimeout)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"log"}, cfg.NotifierDrivers)
	assert.Equal(t, "enrollment.events", cfg.AMQPExchange)
	assert.Equal(t, "enrollment-events", cfg.KafkaTopic)
	assert.Equal(t, "200-M", cfg.RateLimit)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("NOTIFIER_DRIVERS", "log, kafka ,amqp")
	v.Set("KAFKA_BROKERS", "k1:9092,k2:9092")
	v.Set("LOCK_TIMEOUT", "not-a-duration")
	v.Set("DB_MAX_CONNS", 0)

	cfg := fromViper(v)

	assert.Equal(t, []string{"log", "kafka", "amqp"}, cfg.NotifierDrivers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
}
