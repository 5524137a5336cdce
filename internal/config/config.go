package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/crypto/bcrypt"

	"github.com/gajzzs/usbwarden/internal/logging"
)

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type Config struct {
	AutoDenyUnknownDevices      bool   `json:"auto_deny_unknown_devices"`
	EmailNotificationsEnabled   bool   `json:"email_notifications_enabled"`
	DesktopNotificationsEnabled bool   `json:"desktop_notifications_enabled"`
	USBStoragePolicyKey         string `json:"usb_storage_policy_key"`

	ListenAddr        string `json:"listen_addr"`
	AdminUsername     string `json:"admin_username"`
	AdminPasswordHash string `json:"admin_password_hash"`

	SMTP SMTPConfig     `json:"smtp"`
	Log  logging.Config `json:"log"`
}

var (
	ConfigDir  = defaultConfigDir()
	ConfigFile = filepath.Join(ConfigDir, "config.json")
)

var ErrNoAdminPassword = errors.New("admin password is not set")

const (
	DefaultListenAddr = ":8080"
	DefaultLogSize    = 10 * 1024 * 1024
	DefaultLogFiles   = 5
)

// Default returns the built-in configuration. Unknown devices are allowed
// and notifications are off.
func Default() *Config {
	return &Config{
		ListenAddr:    DefaultListenAddr,
		AdminUsername: "admin",
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Log: logging.Config{
			File:         filepath.Join(defaultLogDir(), "usb_events.log"),
			MaxSizeBytes: DefaultLogSize,
			MaxFiles:     DefaultLogFiles,
			Level:        "info",
			Console:      true,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config file %s is corrupted: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, root-readable only since it holds SMTP credentials.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr must not be empty")
	}
	if c.Log.MaxFiles < 1 {
		return fmt.Errorf("log.max_files must be at least 1, got %d", c.Log.MaxFiles)
	}
	if c.Log.MaxSizeBytes <= 0 {
		return fmt.Errorf("log.max_size_bytes must be positive, got %d", c.Log.MaxSizeBytes)
	}
	if c.EmailNotificationsEnabled {
		if c.SMTP.Host == "" || c.SMTP.To == "" || c.SMTP.From == "" {
			return errors.New("email notifications need smtp.host, smtp.from and smtp.to")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("invalid smtp.port %d", c.SMTP.Port)
		}
	}
	return nil
}

// SetAdminPassword stores a bcrypt hash of password.
func (c *Config) SetAdminPassword(password string) error {
	if password == "" {
		return ErrNoAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	c.AdminPasswordHash = string(hash)
	return nil
}

// CheckAdmin reports whether the credentials match the configured admin.
func (c *Config) CheckAdmin(username, password string) bool {
	if c.AdminPasswordHash == "" || username != c.AdminUsername {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.AdminPasswordHash), []byte(password)) == nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.AdminUsername == "" {
		c.AdminUsername = def.AdminUsername
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = def.SMTP.Port
	}
	if c.Log.File == "" {
		c.Log.File = def.Log.File
	}
	if c.Log.MaxSizeBytes == 0 {
		c.Log.MaxSizeBytes = def.Log.MaxSizeBytes
	}
	if c.Log.MaxFiles == 0 {
		c.Log.MaxFiles = def.Log.MaxFiles
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func defaultConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), "usbwarden")
	}
	return "/etc/usbwarden"
}

func defaultLogDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), "usbwarden")
	}
	return "/var/log/usbwarden"
}

func programData() string {
	if dir := os.Getenv("ProgramData"); dir != "" {
		return dir
	}
	return `C:\ProgramData`
}
