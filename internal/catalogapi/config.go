package catalogapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
)

const (
	defaultListenAddr      = ":8000"
	defaultDatabaseURL     = "sqlite:///tmp/storefront.db"
	defaultAllowedOrigin   = "http://localhost:3000"
	defaultShutdownTimeout = 5 * time.Second
)

// Config aggregates runtime settings for the catalog API.
type Config struct {
	ListenAddr       string
	DatabaseURL      string
	AllowedOrigins   []string
	AdminIDs         []storefront.UserID
	TelegramBotToken string
	OrderChatID      int64
	Seed             bool
	ShutdownTimeout  time.Duration
}

// Validate applies defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if strings.TrimSpace(cfg.TelegramBotToken) != "" && cfg.OrderChatID == 0 {
		return fmt.Errorf("order chat id is required when a telegram bot token is set")
	}
	return nil
}

// NotificationsEnabled reports whether orders are announced on Telegram.
func (cfg Config) NotificationsEnabled() bool {
	return strings.TrimSpace(cfg.TelegramBotToken) != "" && cfg.OrderChatID != 0
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	return splitList(raw)
}

// ParseAdminIDs splits comma-delimited host user ids.
func ParseAdminIDs(raw string) ([]storefront.UserID, error) {
	parts := splitList(raw)
	adminIDs := make([]storefront.UserID, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("admin id %q: %w", part, err)
		}
		adminIDs = append(adminIDs, storefront.UserID(value))
	}
	return adminIDs, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
