// Package testutil starts a fully wired copilot server on a real port and
// provides clients for its JSON and SSE endpoints.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/permission"
	"github.com/opencode-ai/copilot/internal/prompt"
	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/internal/server"
	"github.com/opencode-ai/copilot/internal/session"
	"github.com/opencode-ai/copilot/internal/storage"
	"github.com/opencode-ai/copilot/pkg/types"
)

// PromptName is the prompt every test server registers.
const PromptName = "chat"

const promptsYAML = `prompts:
  - name: chat
    messages:
      - role: system
        content: You are a helpful assistant. Answer briefly.
  - name: poem
    messages:
      - role: system
        content: Write a two line poem about {{word}}.
`

// TestServer wraps a server instance for testing
type TestServer struct {
	Server      *server.Server
	BaseURL     string
	Config      *types.Config
	Store       storage.Store
	Bus         *event.Bus
	Directory   *permission.MemoryDirectory
	ProviderReg *provider.Registry
	TempDir     string
	port        int
}

// TestServerOption configures TestServer
type TestServerOption func(*testServerConfig)

type testServerConfig struct {
	envFile string
	driver  string
}

// WithEnvFile sets the .env file to load
func WithEnvFile(path string) TestServerOption {
	return func(c *testServerConfig) {
		c.envFile = path
	}
}

// WithStorageDriver selects the storage backend. SQLite is the default.
func WithStorageDriver(driver string) TestServerOption {
	return func(c *testServerConfig) {
		c.driver = driver
	}
}

// StartTestServer creates and starts a test server
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	cfg := &testServerConfig{driver: storage.DriverSQLite}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.envFile != "" {
		_ = godotenv.Load(cfg.envFile)
	} else {
		_ = godotenv.Load("../../.env")
		_ = godotenv.Load("../.env")
		_ = godotenv.Load(".env")
	}

	tempDir, err := os.MkdirTemp("", "copilot-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	port, err := findAvailablePort()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	ctx := context.Background()
	appConfig := buildTestConfig(tempDir, cfg.driver)

	store, err := storage.Open(ctx, storage.Config{
		Driver: appConfig.Storage.Driver,
		Path:   appConfig.Storage.Path,
		URL:    appConfig.Storage.URL,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	promptFile := filepath.Join(tempDir, "prompts.yaml")
	if err := os.WriteFile(promptFile, []byte(promptsYAML), 0o644); err != nil {
		store.Close()
		cleanup()
		return nil, err
	}
	prompts := prompt.NewRegistry()
	if err := prompts.LoadFile(ctx, promptFile); err != nil {
		store.Close()
		cleanup()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	providerReg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		store.Close()
		cleanup()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	bus := event.NewBus()
	directory := permission.NewMemoryDirectory(bus)
	sessions := session.NewService(session.Options{
		Store:   store,
		Prompts: prompts,
		Gateway: permission.NewGateway(directory),
		Bus:     bus,
	})

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port
	srv := server.New(serverConfig, server.Deps{
		Sessions:  sessions,
		Processor: session.NewProcessor(sessions, providerReg),
		Prompts:   prompts,
		Providers: providerReg,
		Directory: directory,
		Bus:       bus,
	})

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		srv.Shutdown(ctx)
		bus.Close()
		store.Close()
		cleanup()
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return &TestServer{
		Server:      srv,
		BaseURL:     baseURL,
		Config:      appConfig,
		Store:       store,
		Bus:         bus,
		Directory:   directory,
		ProviderReg: providerReg,
		TempDir:     tempDir,
		port:        port,
	}, nil
}

// Stop shuts down the test server and cleans up
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ts.Server != nil {
		if err := ts.Server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if ts.Bus != nil {
		ts.Bus.Close()
	}
	if ts.Store != nil {
		ts.Store.Close()
	}
	if ts.TempDir != "" {
		os.RemoveAll(ts.TempDir)
	}

	return nil
}

// Client returns a new test client acting as userID.
func (ts *TestServer) Client(userID string) *TestClient {
	return NewTestClient(ts.BaseURL, userID)
}

// SSEClient returns a new SSE client acting as userID.
func (ts *TestServer) SSEClient(userID string) *SSEClient {
	return NewSSEClient(ts.BaseURL, userID)
}

// HasLiveProvider reports whether an upstream provider was configured from
// the environment.
func (ts *TestServer) HasLiveProvider() bool {
	_, err := ts.ProviderReg.Get("ark")
	return err == nil
}

// buildTestConfig always registers the test provider and adds ARK when its
// credentials are present in the environment.
func buildTestConfig(tempDir, driver string) *types.Config {
	cfg := &types.Config{
		DefaultProvider: provider.TestProviderID,
		Provider: map[string]types.ProviderConfig{
			provider.TestProviderID: {},
		},
		Storage: types.StorageConfig{Driver: driver},
	}

	switch driver {
	case storage.DriverSQLite:
		cfg.Storage.Path = filepath.Join(tempDir, "copilot.db")
	case storage.DriverPostgres:
		cfg.Storage.URL = os.Getenv("COPILOT_TEST_DATABASE_URL")
	default:
		cfg.Storage.Path = filepath.Join(tempDir, "storage")
	}

	if apiKey, modelID := os.Getenv("ARK_API_KEY"), os.Getenv("ARK_MODEL_ID"); apiKey != "" && modelID != "" {
		cfg.Provider["ark"] = types.ProviderConfig{
			APIKey:  apiKey,
			BaseURL: os.Getenv("ARK_BASE_URL"),
			Model:   modelID,
		}
	}
	return cfg
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer waits for the server to be ready
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL, "")
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(context.Background(), "/health")
		if err == nil && resp.IsSuccess() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}
