package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SMTPSettings holds SMTP server configuration.
type SMTPSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	From     string `yaml:"from"`
	TLS      bool   `yaml:"tls,omitempty"`
}

// Enabled returns true when enough SMTP configuration is present to send mail.
func (s SMTPSettings) Enabled() bool {
	return s.Host != "" && s.Port != 0 && s.From != ""
}

// InviteSettings holds invitation lifecycle tuning. Thresholds are
// configuration, not hard-coded business rules.
type InviteSettings struct {
	DefaultExpiryHours    int `yaml:"default_expiry_hours,omitempty"`
	MaxResends            int `yaml:"max_resends,omitempty"`
	ResendCooldownMinutes int `yaml:"resend_cooldown_minutes,omitempty"`
}

// ResendCooldown returns the minimum interval between resends.
func (s InviteSettings) ResendCooldown() time.Duration {
	return time.Duration(s.ResendCooldownMinutes) * time.Minute
}

// SeatSettings holds seat pool tuning.
type SeatSettings struct {
	DefaultSeatCount int `yaml:"default_seat_count,omitempty"`
}

// MaintenanceSettings holds periodic housekeeping tuning.
type MaintenanceSettings struct {
	AuditRetentionDays int `yaml:"audit_retention_days,omitempty"`
}

// Settings holds the optional YAML-file configuration.
type Settings struct {
	SMTP        SMTPSettings        `yaml:"smtp,omitempty"`
	Invites     InviteSettings      `yaml:"invites,omitempty"`
	Seats       SeatSettings        `yaml:"seats,omitempty"`
	Maintenance MaintenanceSettings `yaml:"maintenance,omitempty"`
}

// DefaultSettings returns the Settings used when no file is provided.
func DefaultSettings() Settings {
	return Settings{
		Invites: InviteSettings{
			DefaultExpiryHours:    168, // 7 days
			MaxResends:            5,
			ResendCooldownMinutes: 5,
		},
		Seats: SeatSettings{
			DefaultSeatCount: 5,
		},
		Maintenance: MaintenanceSettings{
			AuditRetentionDays: 365,
		},
	}
}

// LoadSettings reads settings from a YAML file, filling unset fields with
// defaults. A missing path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse settings file: %w", err)
	}

	defaults := DefaultSettings()
	if settings.Invites.DefaultExpiryHours <= 0 {
		settings.Invites.DefaultExpiryHours = defaults.Invites.DefaultExpiryHours
	}
	if settings.Invites.MaxResends <= 0 {
		settings.Invites.MaxResends = defaults.Invites.MaxResends
	}
	if settings.Invites.ResendCooldownMinutes <= 0 {
		settings.Invites.ResendCooldownMinutes = defaults.Invites.ResendCooldownMinutes
	}
	if settings.Seats.DefaultSeatCount <= 0 {
		settings.Seats.DefaultSeatCount = defaults.Seats.DefaultSeatCount
	}
	if settings.Maintenance.AuditRetentionDays <= 0 {
		settings.Maintenance.AuditRetentionDays = defaults.Maintenance.AuditRetentionDays
	}

	return settings, nil
}
