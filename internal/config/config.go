package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string

	// Admins — статический список telegram id администраторов
	Admins []int64

	// Timezone — единственная зона, в которой живёт всё расписание
	Timezone string

	// LessonHours — шаблон времени занятий в будни, "HH:MM"
	LessonHours []string
	// WindowDays — горизонт поиска свободного времени
	WindowDays int
	// LessonDurationMin — фиксированная длительность занятия
	LessonDurationMin int

	RemindersEnabled bool
	// RemindOffsetsMin — за сколько минут до занятия напоминать
	RemindOffsetsMin []int

	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	GoogleCalendarEnabled bool
	GoogleCalendarID      string
	GoogleCredentialsPath string

	MigrationsPath string
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		TelegramToken: os.Getenv("BOT_TOKEN"),
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   getEnv("ENV", "development"),

		Admins:   parseInt64List(os.Getenv("ADMINS")),
		Timezone: getEnv("TZ", "Europe/Moscow"),

		LessonHours:       parseStringList(getEnv("LESSON_HOURS", "15:00,17:00,19:00")),
		WindowDays:        getEnvInt("WINDOW_DAYS", 14),
		LessonDurationMin: getEnvInt("LESSON_DURATION_MIN", 90),

		RemindersEnabled: getEnvBool("REMINDERS_ENABLED", true),
		RemindOffsetsMin: parseIntList(getEnv("REMIND_OFFSETS_MINUTES", "1440,60")),

		SMTPEnabled:  getEnvBool("SMTP_ENABLED", false),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		GoogleCalendarEnabled: getEnvBool("GOOGLE_CALENDAR_ENABLED", false),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GoogleCredentialsPath: getEnv("GOOGLE_CREDENTIALS_JSON_PATH", "./google_credentials.json"),

		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required but not set")
	}
	if len(cfg.RemindOffsetsMin) == 0 {
		cfg.RemindOffsetsMin = []int{1440, 60}
	}

	return cfg, nil
}

// Location загружает настроенную таймзону.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsAdmin проверяет, входит ли telegram id в список администраторов.
func (c *Config) IsAdmin(tgID int64) bool {
	for _, id := range c.Admins {
		if id == tgID {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v", key, v, def)
		return def
	}
	return b
}

func parseStringList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntList(value string) []int {
	var out []int
	for _, part := range parseStringList(value) {
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func parseInt64List(value string) []int64 {
	var out []int64
	for _, part := range parseStringList(value) {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
