package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Self-service wallet top-ups. Unset means enabled everywhere but production.
	WalletDepositsEnabled bool `mapstructure:"WALLET_DEPOSITS_ENABLED"`

	// Document store. STORE=memory runs against in-process repositories.
	Store        string `mapstructure:"STORE"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB          int    `mapstructure:"REDIS_LOCK_DB"`
	RedisReminderQueueDB int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`

	// Collaborators.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	VideoAPIURL             string `mapstructure:"VIDEO_API_URL"`
	VideoAPIKey             string `mapstructure:"VIDEO_API_KEY"`

	// Booking policy.
	Timezone                string        `mapstructure:"TIMEZONE"`
	DefaultDailyCapacity    int           `mapstructure:"DEFAULT_DAILY_CAPACITY"`
	PharmacistDailyCapacity int           `mapstructure:"PHARMACIST_DAILY_CAPACITY"`
	EmergencyFee            int64         `mapstructure:"EMERGENCY_FEE"`
	EmergencyWindow         time.Duration `mapstructure:"EMERGENCY_WINDOW"`
	SessionTTL              time.Duration `mapstructure:"SESSION_TTL"`
	CallPropagationDelay    time.Duration `mapstructure:"CALL_PROPAGATION_DELAY"`
	JoinMaxAttempts         int           `mapstructure:"JOIN_MAX_ATTEMPTS"`
	JoinRetryDelay          time.Duration `mapstructure:"JOIN_RETRY_DELAY"`
	SweepInterval           time.Duration `mapstructure:"SWEEP_INTERVAL"`
	ReadyBuffer             time.Duration `mapstructure:"READY_BUFFER"`
	ReminderWindow          time.Duration `mapstructure:"REMINDER_WINDOW"`
	ReminderLead            time.Duration `mapstructure:"REMINDER_LEAD"`
	RejectDuringCallPolicy  string        `mapstructure:"REJECT_DURING_CALL_POLICY"`
}

var AppConfig Config

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !viper.IsSet("WALLET_DEPOSITS_ENABLED") {
		AppConfig.WalletDepositsEnabled = !IsProduction()
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("STORE", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("DATABASE_NAME", "telecare")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_LOCK_DB", 0)
	v.SetDefault("REDIS_REMINDER_QUEUE_DB", 1)
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "firebase.json")
	v.SetDefault("VIDEO_API_URL", "")
	v.SetDefault("VIDEO_API_KEY", "")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("DEFAULT_DAILY_CAPACITY", 10)
	v.SetDefault("PHARMACIST_DAILY_CAPACITY", 20)
	v.SetDefault("EMERGENCY_FEE", 10000)
	v.SetDefault("EMERGENCY_WINDOW", 10*time.Minute)
	v.SetDefault("SESSION_TTL", 30*time.Minute)
	v.SetDefault("CALL_PROPAGATION_DELAY", 3*time.Second)
	v.SetDefault("JOIN_MAX_ATTEMPTS", 5)
	v.SetDefault("JOIN_RETRY_DELAY", time.Second)
	v.SetDefault("SWEEP_INTERVAL", 60*time.Second)
	v.SetDefault("READY_BUFFER", 15*time.Minute)
	v.SetDefault("REMINDER_WINDOW", 20*time.Minute)
	v.SetDefault("REMINDER_LEAD", 15*time.Minute)
	v.SetDefault("REJECT_DURING_CALL_POLICY", "refund")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location resolves TIMEZONE, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}
