package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr string `yaml:"address" env-required:"true"`
}

type Database struct {
	Host            string `yaml:"host" env-required:"true"`
	Port            int    `yaml:"port" env-required:"true"`
	User            string `yaml:"user" env-required:"true"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name" env-required:"true"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env-default:"50"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env-default:"3600"`
}

// Engine carries MatchingDispatcher's tunables (spec §6 "Configuration
// options"), loaded the same way as every other section of this config.
type Engine struct {
	WorkerCount       int  `yaml:"worker_count" env-default:"4"`
	MaxQueueSize      int  `yaml:"max_queue_size" env-default:"10000"`
	OrderTimeoutSecs  int  `yaml:"order_timeout_secs" env-default:"86400"`
	EnableStopLoss    bool `yaml:"enable_stop_loss" env-default:"true"`
	MaxTriggerDepth   int  `yaml:"max_trigger_depth" env-default:"64"`
	EnableMarketData  bool `yaml:"enable_market_data" env-default:"true"`
	AutoCreateSymbols bool `yaml:"auto_create_symbols" env-default:"true"`
}

type Kafka struct {
	Enabled    bool     `yaml:"enabled" env-default:"false"`
	Brokers    []string `yaml:"brokers"`
	TradeTopic string   `yaml:"trade_topic" env-default:"matching-engine.trades"`
}

type Snapshot struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	Dir     string `yaml:"dir" env-default:"./data/snapshots"`
}

type Config struct {
	Env        string   `yaml:"env" env:"ENV" env-required:"true" env-default:"production"`
	Database   Database `yaml:"database" env-required:"true"`
	Engine     Engine   `yaml:"engine"`
	Kafka      Kafka    `yaml:"kafka"`
	Snapshot   Snapshot `yaml:"snapshot"`
	HTTPServer `yaml:"http_server"`
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("Config path is not set")
		}
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("Unable to load config: %s", err.Error())
	}

	return &cfg
}
