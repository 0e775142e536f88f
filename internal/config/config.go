package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type SchedulerConfig struct {
	BufferMinutes    int           `mapstructure:"buffer_minutes"`
	RainThreshold    int           `mapstructure:"rain_threshold"`
	HorizonDays      int           `mapstructure:"horizon_days"`
	OptimizerURL     string        `mapstructure:"optimizer_url"`
	OptimizerAPIKey  string        `mapstructure:"optimizer_api_key"`
	OptimizerTimeout time.Duration `mapstructure:"optimizer_timeout"`
}

type RulesConfig struct {
	OverdueHours  int `mapstructure:"overdue_hours"`
	MinGapMinutes int `mapstructure:"min_gap_minutes"`
}

type EmailConfig struct {
	From            string   `mapstructure:"from"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	AlertRecipients []string `mapstructure:"alert_recipients"`
}

type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	ServerPort  string          `mapstructure:"server_port"`
	JWTSecret   string          `mapstructure:"jwt_secret"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Rules       RulesConfig     `mapstructure:"rules"`
	Email       EmailConfig     `mapstructure:"email"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Scheduler.BufferMinutes == 0 {
		config.Scheduler.BufferMinutes = 30
	}
	if config.Scheduler.RainThreshold == 0 {
		config.Scheduler.RainThreshold = 60
	}
	if config.Scheduler.HorizonDays == 0 {
		config.Scheduler.HorizonDays = 7
	}
	if config.Scheduler.OptimizerTimeout == 0 {
		config.Scheduler.OptimizerTimeout = 20 * time.Second
	}

	if config.Rules.OverdueHours == 0 {
		config.Rules.OverdueHours = 1440 // 60 days since last completed job
	}
	if config.Rules.MinGapMinutes == 0 {
		config.Rules.MinGapMinutes = 60
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}

	return &config
}
