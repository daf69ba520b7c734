package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/opencode-ai/copilot/pkg/types"
)

// Default values applied before any file is read.
const (
	DefaultPort          = 3010
	DefaultStorageDriver = "file"
	DefaultUserHeader    = "X-User-ID"
)

// envOverrides maps environment variables onto config fields.
// Empty values leave the file configuration untouched.
type envOverrides struct {
	LogLevel        string `env:"COPILOT_LOG_LEVEL"`
	Port            int    `env:"COPILOT_PORT"`
	StorageDriver   string `env:"COPILOT_STORAGE_DRIVER"`
	StoragePath     string `env:"COPILOT_STORAGE_PATH"`
	DatabaseURL     string `env:"DATABASE_URL"`
	PromptsFile     string `env:"COPILOT_PROMPTS_FILE"`
	DefaultProvider string `env:"COPILOT_DEFAULT_PROVIDER"`

	OpenAIKey    string `env:"OPENAI_API_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	ArkKey       string `env:"ARK_API_KEY"`
	ArkModel     string `env:"ARK_MODEL_ID"`
	GeminiKey    string `env:"GEMINI_API_KEY"`
}

// Load loads configuration from multiple sources (priority order):
// 1. Built-in defaults
// 2. Global config (~/.config/copilot/)
// 3. Project config (copilot.json[c] and .copilot/ in directory)
// 4. COPILOT_CONFIG file
// 5. .env in directory (does not replace variables already set)
// 6. Environment variables
func Load(directory string) (*types.Config, error) {
	config := Defaults()

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if loaded[absPath] {
			return nil
		}
		err = loadConfigFile(path, config, baseDir)
		if err == nil {
			loaded[absPath] = true
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}

	globalPath := GetPaths().Config
	candidates := [][2]string{
		{filepath.Join(globalPath, "copilot.json"), globalPath},
		{filepath.Join(globalPath, "copilot.jsonc"), globalPath},
	}
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".copilot")
		candidates = append(candidates,
			[2]string{filepath.Join(directory, "copilot.json"), directory},
			[2]string{filepath.Join(directory, "copilot.jsonc"), directory},
			[2]string{filepath.Join(projectConfigDir, "copilot.json"), projectConfigDir},
			[2]string{filepath.Join(projectConfigDir, "copilot.jsonc"), projectConfigDir},
		)
	}
	if configPath := os.Getenv("COPILOT_CONFIG"); configPath != "" {
		candidates = append(candidates, [2]string{configPath, filepath.Dir(configPath)})
	}

	for _, c := range candidates {
		if err := loadOnce(c[0], c[1]); err != nil {
			return nil, err
		}
	}

	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	if config.Storage.Path == "" {
		config.Storage.Path = defaultStoragePath(config.Storage.Driver)
	}

	return config, nil
}

// defaultStoragePath picks the per-user location for drivers that keep
// data on disk.
func defaultStoragePath(driver string) string {
	switch driver {
	case "", "file":
		return GetPaths().StoragePath()
	case "sqlite":
		return GetPaths().DatabasePath()
	}
	return ""
}

// Defaults returns a configuration with built-in defaults.
func Defaults() *types.Config {
	enableCORS := true
	return &types.Config{
		LogLevel: "INFO",
		Server: types.ServerConfig{
			Port:       DefaultPort,
			EnableCORS: &enableCORS,
			UserHeader: DefaultUserHeader,
		},
		Storage: types.StorageConfig{
			Driver: DefaultStorageDriver,
		},
		Provider:   make(map[string]types.ProviderConfig),
		Workspaces: make(map[string]map[string]string),
	}
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig, baseDir)
	return nil
}

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := resolvePath(filePattern.FindStringSubmatch(match)[1], baseDir)

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped, _ := json.Marshal(strings.TrimRight(string(content), "\n"))
		return string(escaped[1 : len(escaped)-1])
	})

	return []byte(str)
}

// resolvePath expands ~/ and makes relative paths relative to baseDir.
func resolvePath(path, baseDir string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		return filepath.Join(baseDir, path)
	}
	return path
}

// mergeConfig merges source config into target. Relative file paths in source
// are resolved against the directory of the file that declared them.
func mergeConfig(target, source *types.Config, baseDir string) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.LogPretty {
		target.LogPretty = true
	}
	if source.DefaultProvider != "" {
		target.DefaultProvider = source.DefaultProvider
	}

	// Server
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.EnableCORS != nil {
		target.Server.EnableCORS = source.Server.EnableCORS
	}
	if source.Server.UserHeader != "" {
		target.Server.UserHeader = source.Server.UserHeader
	}

	// Storage
	if source.Storage.Driver != "" {
		target.Storage.Driver = source.Storage.Driver
	}
	if source.Storage.Path != "" {
		target.Storage.Path = resolvePath(source.Storage.Path, baseDir)
	}
	if source.Storage.URL != "" {
		target.Storage.URL = source.Storage.URL
	}

	// Prompts
	if source.Prompts.File != "" {
		target.Prompts.File = resolvePath(source.Prompts.File, baseDir)
	}
	if source.Prompts.Watch {
		target.Prompts.Watch = true
	}

	// Merge providers
	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	// Merge workspaces
	if source.Workspaces != nil {
		if target.Workspaces == nil {
			target.Workspaces = make(map[string]map[string]string)
		}
		for k, v := range source.Workspaces {
			target.Workspaces[k] = v
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if o.LogLevel != "" {
		config.LogLevel = o.LogLevel
	}
	if o.Port != 0 {
		config.Server.Port = o.Port
	}
	if o.StorageDriver != "" {
		config.Storage.Driver = o.StorageDriver
	}
	if o.StoragePath != "" {
		config.Storage.Path = o.StoragePath
	}
	if o.DatabaseURL != "" {
		config.Storage.URL = o.DatabaseURL
	}
	if o.PromptsFile != "" {
		config.Prompts.File = o.PromptsFile
	}
	if o.DefaultProvider != "" {
		config.DefaultProvider = o.DefaultProvider
	}

	// Provider API keys only fill gaps left by config files.
	setKey := func(providerID, apiKey string) {
		if apiKey == "" {
			return
		}
		if config.Provider == nil {
			config.Provider = make(map[string]types.ProviderConfig)
		}
		p := config.Provider[providerID]
		if p.APIKey == "" {
			p.APIKey = apiKey
			config.Provider[providerID] = p
		}
	}
	setKey("openai", o.OpenAIKey)
	setKey("anthropic", o.AnthropicKey)
	setKey("ark", o.ArkKey)
	setKey("gemini", o.GeminiKey)

	if o.ArkModel != "" {
		if p, ok := config.Provider["ark"]; ok && p.Model == "" {
			p.Model = o.ArkModel
			config.Provider["ark"] = p
		}
	}

	return nil
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
