package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	SweepTime     string // HH:MM, daily missed-deadline sweep
	SummaryTime   string // HH:MM, daily summary push
	CaptureTTL    time.Duration
	StartupSweep  time.Duration // delay before the first sweep after boot
}

// Load reads configuration from environment variables (and a .env file if
// present) with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SweepTime:     strings.TrimSpace(os.Getenv("SWEEP_TIME")),
		SummaryTime:   strings.TrimSpace(os.Getenv("SUMMARY_TIME")),
		CaptureTTL:    parseMinutes(strings.TrimSpace(os.Getenv("CAPTURE_TTL_MINUTES"))),
		StartupSweep:  30 * time.Second,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "opptick.db"
	}
	if cfg.SweepTime == "" {
		cfg.SweepTime = "09:00"
	}
	if cfg.SummaryTime == "" {
		cfg.SummaryTime = "20:00"
	}
	if cfg.CaptureTTL == 0 {
		cfg.CaptureTTL = 30 * time.Minute
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseMinutes(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}
