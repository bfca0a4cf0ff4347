package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the admin settings file. Absent keys leave the environment values alone.
type Settings struct {
	NotificationsEnabled *bool    `yaml:"notifications_enabled"`
	AdminEmails          []string `yaml:"admin_emails"`
}

// LoadSettingsFile reads and strictly decodes the YAML settings file at path.
func LoadSettingsFile(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var s Settings
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return &s, nil
}

// ApplySettings overrides the admin settings of c with those present in s.
func (c *Config) ApplySettings(s *Settings) {
	if s == nil {
		return
	}
	if s.NotificationsEnabled != nil {
		c.NotificationsEnabled = *s.NotificationsEnabled
	}
	if s.AdminEmails != nil {
		c.AdminEmails = normalizeEmails(s.AdminEmails)
	}
}
