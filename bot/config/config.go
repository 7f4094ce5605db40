// Package config describes the restaurant bot configuration layered on top of the core config.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/restobot/core/config"
	coredatabase "github.com/m3rciful/restobot/core/database"
)

// RedisConfig points at the optional operator history store.
// An empty Addr keeps history in process memory.
type RedisConfig struct {
	Addr       string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password   string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" envconfig:"REDIS_DB"`
	HistoryTTL time.Duration `yaml:"history_ttl" envconfig:"REDIS_HISTORY_TTL"`
}

// AIConfig configures the OpenAI compatible completion endpoint used by the operator.
type AIConfig struct {
	APIKey      string        `yaml:"api_key" envconfig:"AI_API_KEY"`
	BaseURL     string        `yaml:"base_url" envconfig:"AI_BASE_URL"`
	Model       string        `yaml:"model" envconfig:"AI_MODEL"`
	Temperature float64       `yaml:"temperature" envconfig:"AI_TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"AI_TIMEOUT"`
	Referer     string        `yaml:"referer" envconfig:"PROJECT_PUBLIC_URL"`
	Title       string        `yaml:"title" envconfig:"AI_TITLE"`
	// HistoryTurns bounds the operator history kept per user.
	HistoryTurns int `yaml:"history_turns" envconfig:"AI_HISTORY_TURNS"`
}

// Span is one opening window, "HH:MM" wall clock in the restaurant zone.
// A close at or before open means the window ends on the following day.
type Span struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// Site is a restaurant location offered for pickup and reservations.
type Site struct {
	Title   string `yaml:"title"`
	Address string `yaml:"address"`
}

// RestaurantConfig holds business rules of the restaurant.
type RestaurantConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone" envconfig:"RESTAURANT_TZ"`
	// MinReadyMinutes is the preparation offset of "as soon as possible" orders.
	MinReadyMinutes int `yaml:"min_ready_minutes"`
	// ScheduledMinReadyMinutes is the offset used for the closed-restaurant hint.
	ScheduledMinReadyMinutes int             `yaml:"scheduled_min_ready_minutes"`
	SlotMinutes              int             `yaml:"slot_minutes"`
	ServiceFee               int64           `yaml:"service_fee"`
	CakeLeadDays             int             `yaml:"cake_lead_days"`
	CakeMarker               string          `yaml:"cake_marker"`
	Hours                    map[string]Span `yaml:"hours"`
	Sites                    []Site          `yaml:"sites"`
	// Upsell names the categories offered right before checkout.
	Upsell []string `yaml:"upsell"`
	// Info is free text about the restaurant added to the operator preamble.
	Info string `yaml:"info"`
}

// GroupsConfig lists staff chats receiving notifications. Zero disables a channel.
type GroupsConfig struct {
	Orders       int64 `yaml:"orders" envconfig:"TG_GROUP_ORDERS_ID"`
	Reservations int64 `yaml:"reservations" envconfig:"TG_GROUP_RESERVES_ID"`
	Feedback     int64 `yaml:"feedback" envconfig:"FEEDBACK_GROUP"`
}

// MenuConfig locates the menu CSV.
type MenuConfig struct {
	Path string `yaml:"path" envconfig:"MENU_PATH"`
}

// StorageConfig tunes the asynchronous persistence workers.
type StorageConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
	// LogMessages stores every inbound and outbound chat message.
	LogMessages bool `yaml:"log_messages"`
}

// Config aggregates the bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database   coredatabase.Config `yaml:"database"`
	Redis      RedisConfig         `yaml:"redis"`
	AI         AIConfig            `yaml:"ai"`
	Restaurant RestaurantConfig    `yaml:"restaurant"`
	Groups     GroupsConfig        `yaml:"groups"`
	Menu       MenuConfig          `yaml:"menu"`
	Storage    StorageConfig       `yaml:"storage"`

	PolicyURL string `yaml:"policy_url" envconfig:"POLICY_URL"`
	VideoURL  string `yaml:"video_url" envconfig:"VIDEO_URL"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Weekdays lists the keys accepted in restaurant.hours, Sunday first as time.Weekday.
var Weekdays = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// DefaultSites are the locations used when none are configured.
var DefaultSites = []Site{
	{Title: "ул. Баранова, 87", Address: "Удмуртия, Ижевск, ул. Баранова, 87"},
	{Title: "ул. Петрова, 27а", Address: "Удмуртия, Ижевск, ул. Петрова, 27а"},
	{Title: "ул. Красная, 140", Address: "Удмуртия, Ижевск, ул. Красная, 140"},
}

func defaultHours() map[string]Span {
	h := make(map[string]Span, 7)
	for _, d := range Weekdays {
		h[d] = Span{Open: "09:00", Close: "23:00"}
	}
	h["thu"] = Span{Open: "09:00", Close: "00:00"}
	h["fri"] = Span{Open: "09:00", Close: "00:00"}
	return h
}

// Load reads the YAML file at path, overlays the environment and normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	r := &cfg.Restaurant
	if r.Name == "" {
		r.Name = "Аями"
	}
	if r.Timezone == "" {
		r.Timezone = "Asia/Yekaterinburg"
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("restaurant.timezone: %w", err)
	}
	if r.MinReadyMinutes <= 0 {
		r.MinReadyMinutes = 60
	}
	if r.ScheduledMinReadyMinutes <= 0 {
		r.ScheduledMinReadyMinutes = 90
	}
	if r.SlotMinutes <= 0 {
		r.SlotMinutes = 5
	}
	if r.ServiceFee < 0 {
		return fmt.Errorf("restaurant.service_fee must be >= 0")
	}
	if r.ServiceFee == 0 {
		r.ServiceFee = 39
	}
	if r.CakeLeadDays <= 0 {
		r.CakeLeadDays = 2
	}
	if strings.TrimSpace(r.CakeMarker) == "" {
		r.CakeMarker = "торт"
	}
	defaults := defaultHours()
	if r.Hours == nil {
		r.Hours = map[string]Span{}
	}
	for key := range r.Hours {
		if !isWeekday(key) {
			return fmt.Errorf("restaurant.hours: unknown weekday %q; allowed: %s", key, strings.Join(Weekdays[:], ", "))
		}
	}
	for _, d := range Weekdays {
		if _, ok := r.Hours[d]; !ok {
			r.Hours[d] = defaults[d]
		}
	}
	if len(r.Sites) == 0 {
		r.Sites = append([]Site(nil), DefaultSites...)
	}
	for i, s := range r.Sites {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Address) == "" {
			return fmt.Errorf("restaurant.sites[%d]: title and address are required", i)
		}
	}

	if r.Upsell == nil {
		r.Upsell = []string{"Напитки", "Десерты", "Соусы"}
	}

	ai := &cfg.AI
	if ai.BaseURL == "" {
		ai.BaseURL = "https://openrouter.ai/api/v1"
	}
	if ai.Model == "" {
		ai.Model = "openai/gpt-4o-mini"
	}
	if ai.Temperature == 0 {
		ai.Temperature = 0.5
	}
	if ai.Timeout <= 0 {
		ai.Timeout = 60 * time.Second
	}
	if ai.Referer == "" {
		ai.Referer = "https://example.com"
	}
	if ai.Title == "" {
		ai.Title = "Ayami Operator Bot"
	}
	if ai.HistoryTurns <= 0 {
		ai.HistoryTurns = 10
	}

	if cfg.Redis.HistoryTTL <= 0 {
		cfg.Redis.HistoryTTL = 24 * time.Hour
	}
	if cfg.Menu.Path == "" {
		cfg.Menu.Path = "assets/menu.csv"
	}
	if cfg.Storage.Workers <= 0 {
		cfg.Storage.Workers = 2
	}
	if cfg.Storage.QueueSize <= 0 {
		cfg.Storage.QueueSize = 256
	}
	if cfg.Storage.Timeout <= 0 {
		cfg.Storage.Timeout = 10 * time.Second
	}
	if cfg.PolicyURL == "" {
		cfg.PolicyURL = "https://sushi-ayami.ru/policy"
	}
	if cfg.VideoURL == "" {
		cfg.VideoURL = "https://t.me/instruction_bot_01"
	}
	return nil
}

func isWeekday(key string) bool {
	for _, d := range Weekdays {
		if d == key {
			return true
		}
	}
	return false
}
