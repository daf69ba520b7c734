// Package config provides configuration loading, merging, and path management
// for the copilot engine.
//
// # Configuration Loading
//
// Load merges configuration from several sources, later sources overriding
// earlier ones:
//
//  1. Built-in defaults (see Defaults)
//  2. Global config (~/.config/copilot/copilot.json[c])
//  3. Project config (copilot.json[c] and .copilot/copilot.json[c])
//  4. COPILOT_CONFIG file
//  5. .env in the project directory
//  6. Environment variables (COPILOT_*, DATABASE_URL, provider API keys)
//
// Files may be JSON or JSONC; comments are stripped with tidwall/jsonc.
//
// # Variable Interpolation
//
// String values may reference the environment or other files:
//
//	{
//	  "provider": {
//	    "openai": { "apiKey": "{env:MY_OPENAI_KEY}" }
//	  },
//	  "storage": { "url": "{file:~/.secrets/dsn}" }
//	}
//
// Relative paths in storage.path, prompts.file and {file:...} placeholders
// resolve against the directory of the file that declares them.
//
// # Example
//
//	{
//	  "logLevel": "DEBUG",
//	  "server": { "port": 3010 },
//	  "storage": { "driver": "sqlite", "path": "copilot.db" },
//	  "defaultProvider": "openai",
//	  "prompts": { "file": "prompts.yaml", "watch": true },
//	  "workspaces": {
//	    "ws-cloud": { "alice": "owner", "bob": "write" }
//	  }
//	}
package config
