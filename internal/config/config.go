package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var (
	ErrMissingAPIID   = errors.New("TG_API_ID is required")
	ErrMissingAPIHash = errors.New("TG_API_HASH is required")
)

type Config struct {
	// Credentials
	APIID     int32  `toml:"api_id"`
	APIHash   string `toml:"api_hash"`
	FirstName string `toml:"first_name"`
	LastName  string `toml:"last_name"`

	// TDLib parameters
	DatabaseDirectory      string `toml:"database_directory"`
	UseMessageDatabase     bool   `toml:"use_message_database"`
	UseSecretChats         bool   `toml:"use_secret_chats"`
	SystemLanguageCode     string `toml:"system_language_code"`
	DeviceModel            string `toml:"device_model"`
	ApplicationVersion     string `toml:"application_version"`
	EnableStorageOptimizer bool   `toml:"enable_storage_optimizer"`
	EncryptionKey          string `toml:"encryption_key"`

	// tdjson gateway
	GatewayBase        string `toml:"gateway_base"`
	GatewayAuthBearer  string `toml:"gateway_auth_bearer"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds"`

	// Retry pacing for failed auth steps
	RetryIntervalMillis int `toml:"retry_interval_millis"`
	RetryBurst          int `toml:"retry_burst"`

	JournalPath string `toml:"journal_path"`

	// Operator notifications over the Bot API
	NotifyBotToken string `toml:"notify_bot_token"`
	NotifyChatID   int64  `toml:"notify_chat_id"`
}

func Default() Config {
	return Config{
		DatabaseDirectory:      "tdlib",
		UseMessageDatabase:     true,
		UseSecretChats:         true,
		SystemLanguageCode:     "en",
		DeviceModel:            "Desktop",
		ApplicationVersion:     "1.0",
		EnableStorageOptimizer: true,
		GatewayBase:            "http://localhost:8080",
		HTTPTimeoutSeconds:     20,
		PollTimeoutSeconds:     30,
		RetryIntervalMillis:    1000,
		RetryBurst:             3,
		JournalPath:            "tgrecorder.db",
	}
}

// Load builds the config from defaults, an optional TOML file named by RECORDER_CONFIG
// and the environment (a .env file in the working directory is honoured).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env not found, using process environment")
	}

	cfg := Default()
	if path := os.Getenv("RECORDER_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.APIID = int32(getEnvAsInt("TG_API_ID", int(cfg.APIID)))
	cfg.APIHash = getEnv("TG_API_HASH", cfg.APIHash)
	cfg.FirstName = getEnv("TG_FIRST_NAME", cfg.FirstName)
	cfg.LastName = getEnv("TG_LAST_NAME", cfg.LastName)

	cfg.DatabaseDirectory = getEnv("TDLIB_DATABASE_DIRECTORY", cfg.DatabaseDirectory)
	cfg.UseMessageDatabase = getEnvAsBool("TDLIB_USE_MESSAGE_DATABASE", cfg.UseMessageDatabase)
	cfg.UseSecretChats = getEnvAsBool("TDLIB_USE_SECRET_CHATS", cfg.UseSecretChats)
	cfg.SystemLanguageCode = getEnv("TDLIB_SYSTEM_LANGUAGE_CODE", cfg.SystemLanguageCode)
	cfg.DeviceModel = getEnv("TDLIB_DEVICE_MODEL", cfg.DeviceModel)
	cfg.ApplicationVersion = getEnv("TDLIB_APPLICATION_VERSION", cfg.ApplicationVersion)
	cfg.EnableStorageOptimizer = getEnvAsBool("TDLIB_ENABLE_STORAGE_OPTIMIZER", cfg.EnableStorageOptimizer)
	cfg.EncryptionKey = getEnv("TDLIB_ENCRYPTION_KEY", cfg.EncryptionKey)

	cfg.GatewayBase = getEnv("GATEWAY_BASE", cfg.GatewayBase)
	cfg.GatewayAuthBearer = getEnv("GATEWAY_AUTH_BEARER", cfg.GatewayAuthBearer)
	cfg.HTTPTimeoutSeconds = getEnvAsInt("HTTP_TIMEOUT_SECONDS", cfg.HTTPTimeoutSeconds)
	cfg.PollTimeoutSeconds = getEnvAsInt("POLL_TIMEOUT_SECONDS", cfg.PollTimeoutSeconds)

	cfg.RetryIntervalMillis = getEnvAsInt("RETRY_INTERVAL_MILLIS", cfg.RetryIntervalMillis)
	cfg.RetryBurst = getEnvAsInt("RETRY_BURST", cfg.RetryBurst)

	cfg.JournalPath = getEnv("JOURNAL_PATH", cfg.JournalPath)

	cfg.NotifyBotToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.NotifyBotToken)
	cfg.NotifyChatID = getEnvAsInt64("NOTIFY_CHAT_ID", cfg.NotifyChatID)
}

func (c *Config) Validate() error {
	if c.APIID == 0 {
		return ErrMissingAPIID
	}
	if c.APIHash == "" {
		return ErrMissingAPIHash
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("⚠️ Warning: %s must be int, using default %d\n", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		log.Printf("⚠️ Warning: %s must be int, using default %d\n", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("⚠️ Warning: %s must be bool, using default %t\n", key, defaultVal)
		return defaultVal
	}
	return val
}
