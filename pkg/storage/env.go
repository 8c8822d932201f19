// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// PluginConfig toggles one named plugin.
type PluginConfig struct {
	Name   string `toml:"name"`
	Enable bool   `toml:"enable"`
}

// ConfigEnv stores the system-level configuration read from env.toml.
type ConfigEnv struct {
	Port         uint16         `toml:"port"`
	StorageDir   string         `toml:"storage_dir"`
	ConfigDir    string         `toml:"config_dir"`
	PluginDir    string         `toml:"plugin_dir"`
	MaxDiskUsage float64        `toml:"max_disk_usage"`
	Plugin       []PluginConfig `toml:"plugin,omitempty"`
}

const defaultMaxDiskUsageGB = 1000

// GenerateConfigEnv writes a default env.toml at envPath, with the three
// directories placed beside it; callers exit after calling this so the
// operator can edit the generated file before first real launch.
func GenerateConfigEnv(envPath string) error {
	home := filepath.Dir(envPath)
	env := ConfigEnv{
		Port:         2020,
		StorageDir:   filepath.Join(home, "storage"),
		ConfigDir:    filepath.Join(home, "config"),
		PluginDir:    filepath.Join(home, "plugins"),
		MaxDiskUsage: defaultMaxDiskUsageGB,
	}
	buf, err := toml.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal default env.toml: %w", err)
	}
	return os.WriteFile(envPath, buf, 0o600)
}

// NewConfigEnv parses and validates the env.toml contents in envTOML.
// It does not read envPath and does not generate a missing file; that
// is GenerateConfigEnv's job.
func NewConfigEnv(envPath string, envTOML []byte) (*ConfigEnv, error) {
	var env ConfigEnv
	if err := toml.Unmarshal(envTOML, &env); err != nil {
		return nil, fmt.Errorf("could not unmarshal env.toml: %w", err)
	}

	if env.Port == 0 {
		env.Port = 2020
	}
	if env.MaxDiskUsage <= 0 {
		return nil, fmt.Errorf("max_disk_usage must be a positive number of gigabytes")
	}

	if !filepath.IsAbs(env.StorageDir) {
		return nil, fmt.Errorf("storage_dir %q is not an absolute path", env.StorageDir)
	}
	if !filepath.IsAbs(env.ConfigDir) {
		return nil, fmt.Errorf("config_dir %q is not an absolute path", env.ConfigDir)
	}
	if !filepath.IsAbs(env.PluginDir) {
		return nil, fmt.Errorf("plugin_dir %q is not an absolute path", env.PluginDir)
	}

	for _, dir := range []string{env.StorageDir, env.ConfigDir, env.PluginDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("could not create directory %q: %w", dir, err)
		}
	}

	return &env, nil
}

// PluginEnabled reports whether the named plugin is enabled in config.
func (env *ConfigEnv) PluginEnabled(name string) bool {
	for _, p := range env.Plugin {
		if p.Name == name {
			return p.Enable
		}
	}
	return false
}
