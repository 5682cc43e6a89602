package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBName      string
	DBUser      string
	DBPassword  string

	// API
	APIPort string
	APIHost string

	// Optional IMAP source for not-yet-archived mail
	MailIMAPHost string
	MailIMAPPort string
	MailUsername string
	MailPassword string

	// Archive
	ArchiveBaseURL string
	DataDir        string

	// Triage
	DaysBack     int
	RequiredAcks int

	// Reporting
	PatchOutputDir string
	CheckpatchPath string
}

func LoadConfig() *Config {
	return &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBName:         getEnv("DB_NAME", "kteam_analyzer"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		MailIMAPHost:   getEnv("MAIL_IMAP_HOST", ""),
		MailIMAPPort:   getEnv("MAIL_IMAP_PORT", "993"),
		MailUsername:   getEnv("MAIL_USERNAME", ""),
		MailPassword:   getEnv("MAIL_PASSWORD", ""),
		ArchiveBaseURL: getEnv("ARCHIVE_BASE_URL", ""),
		DataDir:        getEnv("DATA_DIR", "./data"),
		DaysBack:       getEnvInt("DAYS_BACK", 14),
		RequiredAcks:   getEnvInt("REQUIRED_ACKS", 2),
		PatchOutputDir: getEnv("PATCH_OUTPUT_DIR", ""),
		CheckpatchPath: getEnv("CHECKPATCH_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
