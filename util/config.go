package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const Name = "inkblock"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host          string
		HttpPort      int    `yaml:"httpPort"`
		SshPort       int    `yaml:"sshPort"`
		Serve         bool   `yaml:"serve"`
		BackendUrl    string `yaml:"backendUrl"`
		CanisterId    string `yaml:"canisterId"`
		DbFile        string `yaml:"dbFile"`
		LogFile       string `yaml:"logFile"`
		NoticeSeconds int    `yaml:"noticeSeconds"`
	}
}

func ReadConf() (*AppConfig, error) {
	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := filepath.Join(configDir, ConfigFileName)
			if writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644); writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	if err = yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	if err = c.applyEnv(); err != nil {
		return nil, err
	}

	if c.Conf.NoticeSeconds <= 0 {
		c.Conf.NoticeSeconds = 3
	}

	return c, nil
}

// applyEnv overrides the file values with INKBLOCK_* environment variables.
func (c *AppConfig) applyEnv() error {
	envHost := os.Getenv("INKBLOCK_HOST")
	envHttpPort := os.Getenv("INKBLOCK_HTTPPORT")
	envSshPort := os.Getenv("INKBLOCK_SSHPORT")
	envServe := os.Getenv("INKBLOCK_SERVE")
	envBackendUrl := os.Getenv("INKBLOCK_BACKEND_URL")
	envCanisterId := os.Getenv("INKBLOCK_CANISTER_ID")
	envDbFile := os.Getenv("INKBLOCK_DB_FILE")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			return fmt.Errorf("INKBLOCK_HTTPPORT: %w", err)
		}
		c.Conf.HttpPort = v
	}

	if envSshPort != "" {
		v, err := strconv.Atoi(envSshPort)
		if err != nil {
			return fmt.Errorf("INKBLOCK_SSHPORT: %w", err)
		}
		c.Conf.SshPort = v
	}

	if envServe == "true" {
		c.Conf.Serve = true
	}

	if envBackendUrl != "" {
		c.Conf.BackendUrl = envBackendUrl
	}

	if envCanisterId != "" {
		c.Conf.CanisterId = envCanisterId
	}

	if envDbFile != "" {
		c.Conf.DbFile = envDbFile
	}

	return nil
}

// CallbackURL is where the identity provider redirects after login.
func (c *AppConfig) CallbackURL() string {
	return fmt.Sprintf("http://%s:%d/auth/callback", c.Conf.Host, c.Conf.HttpPort)
}
