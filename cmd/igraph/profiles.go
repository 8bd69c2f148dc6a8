package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/issuegraph/internal/config"
)

// ProfilesConfig holds all named profiles and tracks which one is active.
type ProfilesConfig struct {
	Active   string             `toml:"active"`
	Profiles map[string]Profile `toml:"profiles"`
}

// Profile is a named tracker connection with its graph configuration.
type Profile struct {
	URL         string `toml:"url"`
	User        string `toml:"user,omitempty"`
	Token       string `toml:"token,omitempty"`
	GraphConfig string `toml:"graph_config,omitempty"`
}

func profilesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "issuegraph")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles.toml"), nil
}

func loadProfiles() (ProfilesConfig, error) {
	path, err := profilesPath()
	if err != nil {
		return ProfilesConfig{}, err
	}
	var pc ProfilesConfig
	if _, err := toml.DecodeFile(path, &pc); err != nil {
		if os.IsNotExist(err) {
			return ProfilesConfig{Profiles: map[string]Profile{}}, nil
		}
		return ProfilesConfig{}, err
	}
	if pc.Profiles == nil {
		pc.Profiles = map[string]Profile{}
	}
	return pc, nil
}

func saveProfiles(pc ProfilesConfig) error {
	path, err := profilesPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(pc)
}

// applyProfile fills settings the environment left empty from the named
// profile, or the active one when name is empty.
func applyProfile(c *config.Config, name string) error {
	pc, err := loadProfiles()
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}
	if name == "" {
		name = pc.Active
	}
	if name == "" {
		return nil
	}
	p, ok := pc.Profiles[name]
	if !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	if c.URL == "" {
		c.URL = p.URL
	}
	if c.User == "" {
		c.User = p.User
	}
	if c.Token == "" {
		c.Token = p.Token
	}
	if c.GraphConfig == "" {
		c.GraphConfig = p.GraphConfig
	}
	return nil
}
