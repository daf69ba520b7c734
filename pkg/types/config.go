package types

// Config represents the copilot engine configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Log level: DEBUG, INFO, WARN, ERROR
	LogLevel  string `json:"logLevel,omitempty"`
	LogPretty bool   `json:"logPretty,omitempty"`

	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`

	// Provider used when a prompt names no model and the request names no provider.
	DefaultProvider string `json:"defaultProvider,omitempty"`

	// Provider configs keyed by provider ID ("openai", "anthropic", "ark", "gemini", "test")
	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	Prompts PromptsConfig `json:"prompts"`

	// Cloud workspaces seeded into the in-process membership directory.
	// Keyed by workspace ID, each maps user ID to role.
	Workspaces map[string]map[string]string `json:"workspaces,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int    `json:"port,omitempty"`
	EnableCORS *bool  `json:"enableCors,omitempty"`
	UserHeader string `json:"userHeader,omitempty"` // header carrying the authenticated user ID
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver string `json:"driver,omitempty"` // "file" | "sqlite" | "postgres"
	Path   string `json:"path,omitempty"`   // directory for file, database file for sqlite
	URL    string `json:"url,omitempty"`    // postgres connection string
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`

	// Model/Endpoint ID (for providers like ARK that require endpoint specification)
	Model      string `json:"model,omitempty"`
	ImageModel string `json:"imageModel,omitempty"`
	MaxTokens  int    `json:"maxTokens,omitempty"`

	// Disable provider
	Disable bool `json:"disable,omitempty"`
}

// PromptsConfig points at prompt definition files.
type PromptsConfig struct {
	File  string `json:"file,omitempty"`
	Watch bool   `json:"watch,omitempty"`
}
