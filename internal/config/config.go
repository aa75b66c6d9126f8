package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Mail       MailConfig       `mapstructure:"mail"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Kommo      KommoConfig      `mapstructure:"kommo"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Stats      StatsConfig      `mapstructure:"stats"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// StoreConfig selects the lead store: "postgres" or "sqlite".
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

type ProviderConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ClassifierConfig struct {
	Providers string         `mapstructure:"providers"`
	Groq      ProviderConfig `mapstructure:"groq"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Secure   bool   `mapstructure:"secure"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Timezone string `mapstructure:"timezone"`
}

type SheetsConfig struct {
	Path     string `mapstructure:"path"`
	Timezone string `mapstructure:"timezone"`
}

type QueueConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type KommoConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIToken string `mapstructure:"api_token"`
	StatusID int    `mapstructure:"status_id"`
}

type AuthConfig struct {
	InternalToken string `mapstructure:"internal_token"`
	WebhookToken  string `mapstructure:"webhook_token"`
}

type NotifyConfig struct {
	AwaitTimeout       time.Duration `mapstructure:"await_timeout"`
	SideChannelTimeout time.Duration `mapstructure:"side_channel_timeout"`
}

type StatsConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the deployment's environment names.
var envBindings = map[string]string{
	"server.port":                  "PORT",
	"server.cors_origin":           "CORS_ORIGIN",
	"store.driver":                 "STORE_DRIVER",
	"store.database_url":           "DATABASE_URL",
	"store.sqlite_path":            "SQLITE_PATH",
	"classifier.providers":         "CLASSIFIER_PROVIDERS",
	"classifier.groq.api_key":      "GROQ_API_KEY",
	"classifier.openai.api_key":    "OPENAI_API_KEY",
	"classifier.anthropic.api_key": "ANTHROPIC_API_KEY",
	"mail.host":                    "SMTP_HOST",
	"mail.port":                    "SMTP_PORT",
	"mail.user":                    "SMTP_USER",
	"mail.password":                "SMTP_PASS",
	"mail.secure":                  "SMTP_SECURE",
	"mail.from":                    "FROM_EMAIL",
	"mail.to":                      "ADMIN_EMAIL",
	"sheets.path":                  "SHEETS_PATH",
	"sheets.timezone":              "SHEETS_TIMEZONE",
	"queue.url":                    "RABBITMQ_URL",
	"kafka.brokers":                "KAFKA_BROKERS",
	"kafka.topic":                  "KAFKA_TOPIC",
	"kommo.base_url":               "KOMMO_BASE_URL",
	"kommo.api_token":              "KOMMO_API_TOKEN",
	"kommo.status_id":              "KOMMO_STATUS_ID",
	"auth.internal_token":          "INTERNAL_TOKEN",
	"auth.webhook_token":           "WEBHOOK_TOKEN",
	"notify.await_timeout":         "NOTIFY_AWAIT_TIMEOUT",
	"log.level":                    "LOG_LEVEL",
	"log.format":                   "LOG_FORMAT",
}

// Load reads .env, an optional config.yaml and the environment, in that
// order of increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	v.SetDefault("server.port", 4000)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "leads.db")
	v.SetDefault("classifier.providers", "groq,openai,anthropic")
	v.SetDefault("classifier.groq.max_attempts", 3)
	v.SetDefault("classifier.groq.base_delay", 2*time.Second)
	v.SetDefault("classifier.groq.timeout", 15*time.Second)
	v.SetDefault("classifier.openai.max_attempts", 5)
	v.SetDefault("classifier.openai.base_delay", 5*time.Second)
	v.SetDefault("classifier.openai.timeout", 20*time.Second)
	v.SetDefault("classifier.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("classifier.anthropic.max_attempts", 3)
	v.SetDefault("classifier.anthropic.base_delay", 2*time.Second)
	v.SetDefault("classifier.anthropic.timeout", 20*time.Second)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("sheets.timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("kafka.topic", "leads.events")
	v.SetDefault("notify.await_timeout", 3*time.Second)
	v.SetDefault("notify.side_channel_timeout", 30*time.Second)
	v.SetDefault("stats.interval", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ProviderNames returns the classifier chain in configured order.
func (c ClassifierConfig) ProviderNames() []string {
	return splitList(c.Providers)
}

func (c KafkaConfig) BrokerList() []string {
	return splitList(c.Brokers)
}

func (c ServerConfig) CORSOrigins() []string {
	return splitList(c.CORSOrigin)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
