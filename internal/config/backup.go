package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the number of user config backups kept.
	MaxBackups = 3

	// BackupSuffix precedes the timestamp of a backup file name.
	BackupSuffix = ".bak"
)

// now is replaced in tests to give backups distinct timestamps.
var now = time.Now

// BackupUserConfig copies the user config to config.yaml.bak.<timestamp>
// and prunes old backups. It returns "" when there is no user config.
func BackupUserConfig() (string, error) {
	configPath := GetUserConfigPath()
	if !UserConfigExists() {
		return "", nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", configPath, BackupSuffix, now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// Pruning is best effort once the backup exists
	_ = pruneBackups()

	return backupPath, nil
}

// ListUserConfigBackups returns the user config backups, newest first.
func ListUserConfigBackups() ([]string, error) {
	configPath := GetUserConfigPath()
	entries, err := os.ReadDir(filepath.Dir(configPath))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	prefix := filepath.Base(configPath) + BackupSuffix + "."
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(filepath.Dir(configPath), e.Name()))
		}
	}

	// Timestamps sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func pruneBackups() error {
	backups, err := ListUserConfigBackups()
	if err != nil || len(backups) <= MaxBackups {
		return err
	}
	for _, b := range backups[MaxBackups:] {
		_ = os.Remove(b)
	}
	return nil
}
