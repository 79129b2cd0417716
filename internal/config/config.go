package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Redis (optional, enables the booking relay)
	RedisURL    string
	WorkerCount int

	// Gemini AI (optional, the chat widget is unavailable without it)
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// SMTP
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	WorkshopEmail string

	// Contact links
	PhoneNumber  string
	WhatsAppText string

	// Cookies
	CSRFKey      []byte
	SessionKey   []byte
	CookieSecure bool

	// Rate limits
	ChatMessagesPerMinute int
	BookingsPerMinute     int

	// Presentation
	TemplatesDir   string
	StaticDir      string
	AllowedOrigins string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	env := getEnvOrDefault("ENV", "development")

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   env,
		LogLevel:              getEnvOrDefault("LOG_LEVEL", ""),
		RedisURL:              getEnvOrDefault("REDIS_URL", ""),
		WorkerCount:           getEnvAsIntOrDefault("WORKER_COUNT", 2),
		GeminiAPIKey:          getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		SMTPHost:              getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:              getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:              getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:              getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:              getEnvOrDefault("SMTP_FROM", "reservas@vallesrodes.com"),
		WorkshopEmail:         getEnvOrDefault("WORKSHOP_EMAIL", "info@vallesrodes.com"),
		PhoneNumber:           getEnvOrDefault("PHONE_NUMBER", "+34 600 000 000"),
		WhatsAppText:          getEnvOrDefault("WHATSAPP_TEXT", "Hola, quiero reservar un servicio"),
		CookieSecure:          getEnvAsBoolOrDefault("COOKIE_SECURE", env == "production"),
		ChatMessagesPerMinute: getEnvAsIntOrDefault("CHAT_MESSAGES_PER_MINUTE", 10),
		BookingsPerMinute:     getEnvAsIntOrDefault("BOOKINGS_PER_MINUTE", 5),
		TemplatesDir:          getEnvOrDefault("TEMPLATES_DIR", "./templates"),
		StaticDir:             getEnvOrDefault("STATIC_DIR", "./static"),
		AllowedOrigins:        getEnvOrDefault("ALLOWED_ORIGINS", ""),
	}

	if env == "production" {
		cfg.CSRFKey = mustDecodeKey("CSRF_KEY", mustGetEnv("CSRF_KEY"))
		cfg.SessionKey = mustDecodeKey("SESSION_KEY", mustGetEnv("SESSION_KEY"))
	} else {
		cfg.CSRFKey = keyOrRandom("CSRF_KEY")
		cfg.SessionKey = keyOrRandom("SESSION_KEY")
	}

	return cfg
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// Cookie keys are 32 random bytes, base64 encoded.
func mustDecodeKey(name, val string) []byte {
	key, err := base64.StdEncoding.DecodeString(val)
	if err != nil || len(key) != 32 {
		panic(fmt.Sprintf("%s must be 32 bytes, base64 encoded", name))
	}
	return key
}

// keyOrRandom falls back to a per-process key outside production; sessions
// then do not survive a restart.
func keyOrRandom(name string) []byte {
	if val := os.Getenv(name); val != "" {
		return mustDecodeKey(name, val)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("failed to generate %s: %v", name, err))
	}
	return key
}
