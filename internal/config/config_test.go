package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.False(t, cfg.AutoDenyUnknownDevices)
	assert.False(t, cfg.EmailNotificationsEnabled)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, int64(DefaultLogSize), cfg.Log.MaxSizeBytes)
	assert.Equal(t, DefaultLogFiles, cfg.Log.MaxFiles)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"auto_deny_unknown_devices": true,
		"usb_storage_policy_key": "SYSTEM\\CurrentControlSet\\Services\\USBSTOR",
		"log": {"level": "debug"}
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.AutoDenyUnknownDevices)
	assert.Equal(t, `SYSTEM\CurrentControlSet\Services\USBSTOR`, cfg.USBStoragePolicyKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultLogFiles, cfg.Log.MaxFiles)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateEmailNeedsRecipients(t *testing.T) {
	cfg := Default()
	cfg.EmailNotificationsEnabled = true
	assert.Error(t, cfg.Validate())

	cfg.SMTP.From = "monitor@example.com"
	cfg.SMTP.To = "admin@example.com"
	assert.NoError(t, cfg.Validate())

	cfg.SMTP.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.EmailNotificationsEnabled = true
	cfg.SMTP.From = "monitor@example.com"
	cfg.SMTP.To = "admin@example.com"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestAdminPassword(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.CheckAdmin("admin", ""), "no hash configured")

	assert.ErrorIs(t, cfg.SetAdminPassword(""), ErrNoAdminPassword)
	require.NoError(t, cfg.SetAdminPassword("secure123"))

	assert.True(t, cfg.CheckAdmin("admin", "secure123"))
	assert.False(t, cfg.CheckAdmin("admin", "wrong"))
	assert.False(t, cfg.CheckAdmin("root", "secure123"))
}
