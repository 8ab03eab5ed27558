package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/joho/godotenv"
)

// Config holds the application settings read from the environment.
type Config struct {
	Port        string // HTTP listen port
	FrontendURL string // Origin allowed by CORS
	// Reverse proxies (IPs or CIDRs) whose X-Forwarded-For is believed
	TrustedProxies []string
	Env            string // "development" exposes error details

	DBUser     string // Database username; empty selects fallback mode
	DBPassword string // Database password
	DBHost     string // Database host (e.g., IP address or hostname)
	DBPort     string // Database port (e.g., 3306 for MySQL)
	DBName     string // Name of the database to connect to

	JWTSecret string // Secret key used for JSON Web Token (JWT) signing

	GeminiAPIKey     string // Enables the chatbot when set
	GeminiChatModel  string
	GeminiEmbedModel string

	FallbackDataPath string // JSON fixture served when no database is available
	ChatbotDocsPath  string // Project description indexed for the chatbot
}

var ErrNoDatabase = errors.New("database not configured")

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Could not read .env file: %v", err)
	}

	cfg := Config{
		Port:             getEnv("PORT", "3000"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:4000"),
		TrustedProxies:   splitList(os.Getenv("TRUSTED_PROXIES")),
		Env:              getEnv("ENV", "development"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "3306"),
		DBName:           getEnv("DB_NAME", "doctor_appointment"),
		JWTSecret:        getEnv("JWT_SECRET", "change-me-doctor-appointment"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiChatModel:  getEnv("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
		GeminiEmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		FallbackDataPath: getEnv("FALLBACK_DATA", "data/appointment_data.json"),
		ChatbotDocsPath:  getEnv("CHATBOT_DOCS", "data/project_description.md"),
	}

	log.Printf("Configuration loaded (port=%s, db=%s@%s:%s/%s, chatbot=%t)",
		cfg.Port, cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.GeminiAPIKey != "")
	return cfg
}

// IsDevelopment reports whether error details may be sent to clients.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DSN builds the go-sql-driver data source name.
func (c Config) DSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUser
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%s", c.DBHost, c.DBPort)
	dsn.DBName = c.DBName
	dsn.ParseTime = true
	return dsn.FormatDSN()
}

// ConnectDB opens and pings the MySQL database. ErrNoDatabase is returned
// when no user is configured so the caller can switch to fallback mode.
func ConnectDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DBUser == "" {
		return nil, ErrNoDatabase
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening the %s database: %w", cfg.DBName, err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the %s database: %w", cfg.DBName, err)
	}

	log.Printf("Successfully connected to the %s database", cfg.DBName)
	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma-separated setting, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
