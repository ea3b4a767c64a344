// Package config loads the router configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// Dispatch targets.
const (
	TargetSNS      = "sns"
	TargetNATS     = "nats"
	TargetKafka    = "kafka"
	TargetRabbitMQ = "rabbitmq"
)

// Config is the resolved router configuration.
type Config struct {
	Naming           health.Naming
	Subject          string
	Targets          []string
	DistinctServices bool
	LogLevel         string

	NATS     NATS
	Kafka    Kafka
	RabbitMQ RabbitMQ
}

// NATS mirror settings.
type NATS struct {
	URL           string
	SubjectPrefix string
}

// Kafka mirror settings.
type Kafka struct {
	Brokers     []string
	ClientID    string
	TopicPrefix string
}

// RabbitMQ mirror settings.
type RabbitMQ struct {
	URL      string
	Exchange string
}

// bindings maps config keys to the environment variables that may carry them, in priority order.
var bindings = map[string][]string{
	"region":              {"AWS_REGION", "AWS_DEFAULT_REGION"},
	"account":             {"AWS_ACCOUNT_ID", "AWS_ACCOUNT"},
	"partition":           {"AWS_PARTITION"},
	"topic_prefix":        {"SNS_TOPIC_PREFIX"},
	"subject":             {"ALERT_SUBJECT"},
	"dispatch_targets":    {"DISPATCH_TARGETS"},
	"distinct_services":   {"DISTINCT_SERVICES"},
	"log_level":           {"LOG_LEVEL"},
	"nats.url":            {"NATS_URL"},
	"nats.subject_prefix": {"NATS_SUBJECT_PREFIX"},
	"kafka.brokers":       {"KAFKA_BROKERS"},
	"kafka.client_id":     {"KAFKA_CLIENT_ID"},
	"kafka.topic_prefix":  {"KAFKA_TOPIC_PREFIX"},
	"rabbitmq.url":        {"RABBITMQ_URL"},
	"rabbitmq.exchange":   {"RABBITMQ_EXCHANGE"},
}

// New returns a viper instance with defaults and environment bindings applied.
// Callers may bind command-line flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("partition", "aws")
	v.SetDefault("subject", "ACP Cloud Health Alert")
	v.SetDefault("dispatch_targets", TargetSNS)
	v.SetDefault("distinct_services", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("nats.subject_prefix", "health")
	v.SetDefault("kafka.client_id", "scg-health-router")
	v.SetDefault("rabbitmq.exchange", "health")

	for key, envs := range bindings {
		_ = v.BindEnv(append([]string{key}, envs...)...) //nolint:errcheck // only fails on zero args
	}

	return v
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Naming: health.Naming{
			Partition: v.GetString("partition"),
			Region:    v.GetString("region"),
			Account:   v.GetString("account"),
			Prefix:    v.GetString("topic_prefix"),
		},
		Subject:          v.GetString("subject"),
		Targets:          splitList(v.GetString("dispatch_targets")),
		DistinctServices: v.GetBool("distinct_services"),
		LogLevel:         v.GetString("log_level"),
		NATS: NATS{
			URL:           v.GetString("nats.url"),
			SubjectPrefix: v.GetString("nats.subject_prefix"),
		},
		Kafka: Kafka{
			Brokers:     splitList(v.GetString("kafka.brokers")),
			ClientID:    v.GetString("kafka.client_id"),
			TopicPrefix: v.GetString("kafka.topic_prefix"),
		},
		RabbitMQ: RabbitMQ{
			URL:      v.GetString("rabbitmq.url"),
			Exchange: v.GetString("rabbitmq.exchange"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv loads the configuration from the process environment.
func FromEnv() (*Config, error) { return Load(New()) }

// Validate checks required settings and the consistency of the selected targets.
func (c *Config) Validate() error {
	var missing []string

	if c.Naming.Region == "" {
		missing = append(missing, "AWS_REGION")
	}

	if c.Naming.Account == "" {
		missing = append(missing, "AWS_ACCOUNT_ID")
	}

	if c.Naming.Prefix == "" {
		missing = append(missing, "SNS_TOPIC_PREFIX")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", berr.ErrInvalidConfig, strings.Join(missing, ", "))
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: DISPATCH_TARGETS is empty", berr.ErrInvalidConfig)
	}

	for _, t := range c.Targets {
		switch t {
		case TargetSNS:
		case TargetNATS:
			if c.NATS.URL == "" {
				return fmt.Errorf("%w: NATS_URL required for target %s", berr.ErrInvalidConfig, t)
			}
		case TargetKafka:
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("%w: KAFKA_BROKERS required for target %s", berr.ErrInvalidConfig, t)
			}
		case TargetRabbitMQ:
			if c.RabbitMQ.URL == "" {
				return fmt.Errorf("%w: RABBITMQ_URL required for target %s", berr.ErrInvalidConfig, t)
			}
		default:
			return fmt.Errorf("%w: %w: %q", berr.ErrInvalidConfig, berr.ErrUnknownTarget, t)
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string

	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}

	return out
}
