package team

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	teamsDir string
	cache    map[string]*Config
	mu       sync.RWMutex
}

func NewConfigCache(teamsDir string) *ConfigCache {
	return &ConfigCache{
		teamsDir: teamsDir,
		cache:    make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.teamsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.teamsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive team ID from filename (remove .yml extension)
		fileName := filepath.Base(file)
		teamID := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(teamID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Team configuration loaded", "team", teamID, "enabled", config.Settings.Enabled, "aliases", len(config.Aliases))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(teamID string) (*Config, error) {
	configFile := cc.getConfigFilePath(teamID)
	teamConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Set team ID from parameter
	teamConfig.ID = teamID

	if err := cc.validateConfig(teamConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	// Store in cache
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[teamConfig.ID] = teamConfig

	return teamConfig, nil
}

func (cc *ConfigCache) GetConfig(teamID string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	teamConfig, ok := cc.cache[teamID]
	if !ok {
		return nil, fmt.Errorf("team config with ID '%s' not found", teamID)
	}
	return teamConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

// GetEnabledIDs returns the IDs of enabled teams in stable order.
func (cc *ConfigCache) GetEnabledIDs() []string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	ids := make([]string, 0, len(cc.cache))
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			ids = append(ids, k)
		}
	}
	sort.Strings(ids)
	return ids
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var teamConfig Config
	if err := yaml.Unmarshal(data, &teamConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if teamConfig.Sources.MirrorQuery == "" {
		teamConfig.Sources.MirrorQuery = teamConfig.Name
	}

	return &teamConfig, nil
}

func (cc *ConfigCache) validateConfig(teamConfig *Config) error {
	if teamConfig == nil {
		return fmt.Errorf("teamConfig is nil")
	}

	requiredFields := map[string]string{
		"team ID":   teamConfig.ID,
		"team name": teamConfig.Name,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if len(teamConfig.Aliases) == 0 {
		return fmt.Errorf("at least one alias is required")
	}

	for i, alias := range teamConfig.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("alias at index %d is empty", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(teamID string) string {
	return filepath.Join(cc.teamsDir, teamID+".yml")
}
