package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion            string
	BedrockModelID       string
	BedrockFallbackModel string

	LLMMaxTokens    int
	LLMTemperature  float64
	LLMTimeout      time.Duration
	LLMMaxAttempts  int
	LLMRetryBase    time.Duration
	LLMRetryMaxWait time.Duration

	BreakerThreshold      int
	BreakerCooldown       time.Duration
	BreakerHalfOpenTrials int

	PiperURL       string
	DeepgramAPIKey string
	DeepgramModel  string

	// Classifier tuning. The high-confidence multiplier is empirically tuned,
	// not derivable from the domain, so it stays configurable.
	ClassifierHighMultiplier float64

	MaxToolRounds int
	HistoryTTL    time.Duration

	// Approximate provider pricing used for per-session cost accounting.
	CostLLMInputPer1K  float64
	CostLLMOutputPer1K float64
	CostTTSPer1KChars  float64
	CostSTTPerMinute   float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:       getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		BedrockFallbackModel: getEnv("BEDROCK_FALLBACK_MODEL_ID", ""),

		LLMMaxTokens:    getEnvAsInt("LLM_MAX_TOKENS", 450),
		LLMTemperature:  getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeout:      getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxAttempts:  getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
		LLMRetryBase:    getEnvAsDuration("LLM_RETRY_BASE_DELAY", 500*time.Millisecond),
		LLMRetryMaxWait: getEnvAsDuration("LLM_RETRY_MAX_DELAY", 8*time.Second),

		BreakerThreshold:      getEnvAsInt("LLM_BREAKER_THRESHOLD", 5),
		BreakerCooldown:       getEnvAsDuration("LLM_BREAKER_COOLDOWN", 30*time.Second),
		BreakerHalfOpenTrials: getEnvAsInt("LLM_BREAKER_HALF_OPEN_TRIALS", 2),

		PiperURL:       getEnv("PIPER_URL", "http://piper:5002"),
		DeepgramAPIKey: getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramModel:  getEnv("DEEPGRAM_MODEL", "nova-2"),

		ClassifierHighMultiplier: getEnvAsFloat("CLASSIFIER_HIGH_MULTIPLIER", 2.0),

		MaxToolRounds: getEnvAsInt("MAX_TOOL_ROUNDS", 4),
		HistoryTTL:    getEnvAsDuration("HISTORY_TTL", 24*time.Hour),

		CostLLMInputPer1K:  getEnvAsFloat("COST_LLM_INPUT_PER_1K", 0.00025),
		CostLLMOutputPer1K: getEnvAsFloat("COST_LLM_OUTPUT_PER_1K", 0.00125),
		CostTTSPer1KChars:  getEnvAsFloat("COST_TTS_PER_1K_CHARS", 0.016),
		CostSTTPerMinute:   getEnvAsFloat("COST_STT_PER_MINUTE", 0.0043),
	}
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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
