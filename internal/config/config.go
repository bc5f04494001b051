package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	AdminJWTSecret     string
	KnowledgePath      string

	// Chat gateway (external chat-completion endpoint)
	ChatGatewayEnabled bool
	ChatGatewayAPIKey  string
	ChatGatewayBaseURL string
	ChatGatewayPath    string
	ChatGatewayModel   string
	ChatGatewayTimeout time.Duration
	ChatReplyCacheTTL  time.Duration
}

// Load reads configuration from environment variables, after merging an
// optional .env file from the working directory. Variables already present
// in the environment win over the file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		KnowledgePath:      getEnv("KNOWLEDGE_PATH", ""),

		ChatGatewayEnabled: getEnvAsBool("CHAT_GATEWAY_ENABLED", false),
		ChatGatewayAPIKey:  getEnv("CHAT_GATEWAY_API_KEY", ""),
		ChatGatewayBaseURL: getEnv("CHAT_GATEWAY_BASE_URL", "https://api.openai.com/v1"),
		ChatGatewayPath:    getEnv("CHAT_GATEWAY_PATH", "/chat/completions"),
		ChatGatewayModel:   getEnv("CHAT_GATEWAY_MODEL", "gpt-4o-mini"),
		ChatGatewayTimeout: getEnvAsDuration("CHAT_GATEWAY_TIMEOUT", 10*time.Second),
		ChatReplyCacheTTL:  getEnvAsDuration("CHAT_REPLY_CACHE_TTL", 15*time.Minute),
	}
}

// GatewayConfigured reports whether the chat gateway may be consulted at all.
func (c *Config) GatewayConfigured() bool {
	return c.ChatGatewayEnabled && strings.TrimSpace(c.ChatGatewayAPIKey) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
