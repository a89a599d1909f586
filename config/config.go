package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Fulfill  FulfillConfig  `yaml:"fulfill"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) ConnString() string {
	ssl := d.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, ssl)
}

type KafkaConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ResolveTopicName string `yaml:"resolve_topic_name"`
	OrderTopicName   string `yaml:"order_topic_name"`
	TransitTopicName string `yaml:"transit_topic_name"`
}

func (k KafkaConfig) Addr() string {
	return fmt.Sprintf("%s:%d", k.Host, k.Port)
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type FulfillConfig struct {
	HTTPAddr       string `yaml:"http_addr"`
	WorkerHTTPAddr string `yaml:"worker_http_addr"`

	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	WarehouseID    string `yaml:"warehouse_id"`
	ConveyanceUnit string `yaml:"conveyance_unit"`

	// Cron-расписания sweep'ов (с секундами).
	PickStartSchedule       string `yaml:"pick_start_schedule"`
	PickCompleteSchedule    string `yaml:"pick_complete_schedule"`
	MissionStartSchedule    string `yaml:"mission_start_schedule"`
	MissionCompleteSchedule string `yaml:"mission_complete_schedule"`

	// Разрешение следующего ядра по pod'ам: pod id -> base url.
	// Пустая карта включает детерминированную заглушку.
	PodEndpoints map[string]string `yaml:"pod_endpoints"`

	// Почтовый шлюз; пустой base url включает заглушку.
	MailerBaseURL             string `yaml:"mailer_base_url"`
	MailerSender              string `yaml:"mailer_sender"`
	MailerRateLimitPerMinute  int    `yaml:"mailer_rate_limit_per_minute"`

	ContactCacheTTLSeconds int `yaml:"contact_cache_ttl_seconds"`

	FeedPollIntervalSeconds int `yaml:"feed_poll_interval_seconds"`
	FeedBatchSize           int `yaml:"feed_batch_size"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
