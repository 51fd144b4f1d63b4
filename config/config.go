package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	Env          string
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string

	StorageDriver string
	CasesDir      string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool

	SessionDriver string
	RedisURL      string
	SessionSecret string
	SessionTTL    time.Duration

	AdminUser         string
	AdminPasswordHash string

	ChatHistoryMode  string
	ChatHistoryLimit int

	SerializeDocketWrites bool
	OrphanSweepSchedule   string
}

var defaults = map[string]interface{}{
	"APP_ENV":                 "local",
	"DB_URI":                  "mongodb://127.0.0.1:27017",
	"DB_NAME":                 "docket",
	"BASE_URL":                "",
	"PORT":                    "3000",
	"STORAGE_DRIVER":          "disk",
	"CASES_DIR":               "./public/cases",
	"S3_ENDPOINT":             "",
	"S3_REGION":               "",
	"S3_BUCKET":               "cases",
	"S3_ACCESS_KEY":           "",
	"S3_SECRET_KEY":           "",
	"S3_USE_SSL":              false,
	"SESSION_DRIVER":          "memory",
	"REDIS_URL":               "redis://localhost:6379/0",
	"SESSION_SECRET":          "my-secret",
	"SESSION_TTL_SECONDS":     86400,
	"ADMIN_USER":              "admin",
	"ADMIN_PASSWORD_HASH":     "",
	"CHAT_HISTORY_MODE":       "reset",
	"CHAT_HISTORY_LIMIT":      10,
	"SERIALIZE_DOCKET_WRITES": false,
	"ORPHAN_SWEEP_SCHEDULE":   "@every 1h",
}

// New sets up all config related services
func New() *Config {
	// .env is only there for local development
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	//setup zap logger and replace default logger
	env := v.GetString("APP_ENV")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		Env:                   env,
		URL:                   v.GetString("DB_URI"),
		DatabaseName:          v.GetString("DB_NAME"),
		BaseURL:               v.GetString("BASE_URL"),
		Port:                  v.GetString("PORT"),
		StorageDriver:         v.GetString("STORAGE_DRIVER"),
		CasesDir:              v.GetString("CASES_DIR"),
		S3Endpoint:            v.GetString("S3_ENDPOINT"),
		S3Region:              v.GetString("S3_REGION"),
		S3Bucket:              v.GetString("S3_BUCKET"),
		S3AccessKey:           v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:           v.GetString("S3_SECRET_KEY"),
		S3UseSSL:              v.GetBool("S3_USE_SSL"),
		SessionDriver:         v.GetString("SESSION_DRIVER"),
		RedisURL:              v.GetString("REDIS_URL"),
		SessionSecret:         v.GetString("SESSION_SECRET"),
		SessionTTL:            time.Duration(v.GetInt("SESSION_TTL_SECONDS")) * time.Second,
		AdminUser:             v.GetString("ADMIN_USER"),
		AdminPasswordHash:     v.GetString("ADMIN_PASSWORD_HASH"),
		ChatHistoryMode:       v.GetString("CHAT_HISTORY_MODE"),
		ChatHistoryLimit:      v.GetInt("CHAT_HISTORY_LIMIT"),
		SerializeDocketWrites: v.GetBool("SERIALIZE_DOCKET_WRITES"),
		OrphanSweepSchedule:   v.GetString("ORPHAN_SWEEP_SCHEDULE"),
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().Errorw(message, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}
