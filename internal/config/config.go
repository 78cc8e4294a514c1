package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Fees struct {
		PlatformPercent int64 `yaml:"platform_percent"`
		PayeePercent    int64 `yaml:"payee_percent"`
	} `yaml:"fees"`
	Payouts struct {
		MaxAttempts     int `yaml:"max_attempts"`
		RetryDelaySec   int `yaml:"retry_delay_sec"`
		ChargeDelayMSec int `yaml:"charge_delay_msec"`
	} `yaml:"payouts"`
	Paystack struct {
		SecretKey   string `yaml:"secret_key"`
		BaseURL     string `yaml:"base_url"`
		CallbackURL string `yaml:"callback_url"`
	} `yaml:"paystack"`
	TrueLayer struct {
		ClientID      string `yaml:"client_id"`
		ClientSecret  string `yaml:"client_secret"`
		WebhookSecret string `yaml:"webhook_secret"`
		BaseURL       string `yaml:"base_url"`
		HppURL        string `yaml:"hpp_url"`
		ReturnURL     string `yaml:"return_url"`
	} `yaml:"truelayer"`
	Nium struct {
		APIKey        string `yaml:"api_key"`
		ClientSecret  string `yaml:"client_secret"`
		WebhookSecret string `yaml:"webhook_secret"`
		BaseURL       string `yaml:"base_url"`
		SuccessURL    string `yaml:"success_url"`
		FailureURL    string `yaml:"failure_url"`
	} `yaml:"nium"`
	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`
	Firebase struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`
}

func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv lets deployment override secrets without touching the file.
func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Redis.Password, "REDIS_PASSWORD")
	set(&c.Paystack.SecretKey, "PAYSTACK_SECRET_KEY")
	set(&c.TrueLayer.ClientID, "TRUELAYER_CLIENT_ID")
	set(&c.TrueLayer.ClientSecret, "TRUELAYER_CLIENT_SECRET")
	set(&c.TrueLayer.WebhookSecret, "TRUELAYER_WEBHOOK_SECRET")
	set(&c.Nium.APIKey, "NIUM_API_KEY")
	set(&c.Nium.ClientSecret, "NIUM_CLIENT_SECRET")
	set(&c.Nium.WebhookSecret, "NIUM_WEBHOOK_SECRET")
	set(&c.JWT.Secret, "JWT_SECRET")
	set(&c.Firebase.CredentialsFile, "FIREBASE_CREDENTIALS_FILE")
}
