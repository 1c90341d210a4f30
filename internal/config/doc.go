// Package config provides configuration loading, merging, and path management
// for the echomail server.
//
// # Configuration Loading
//
// The Load function merges configuration from multiple sources in priority
// order:
//
//  1. Built-in defaults
//  2. Global config (~/.config/echomail/)
//  3. Project config (echomail.json / echomail.jsonc in the working directory)
//  4. ECHOMAIL_CONFIG file
//  5. Environment variables
//
// Later sources override earlier ones field by field.
//
// # Supported Formats
//
// Both JSON and JSONC (JSON with Comments) are supported; JSONC is processed
// using tidwall/jsonc.
//
// # Variable Interpolation
//
// Configuration files support two placeholder forms:
//   - {env:VAR_NAME} - expands to the environment variable value
//   - {file:path} - expands to file contents, escaped for JSON
//
// File paths support absolute paths, paths relative to the config file's
// directory, and ~/ home expansion. Example:
//
//	{
//	  "gemini": {
//	    "apiKey": "{env:GEMINI_API_KEY}"
//	  }
//	}
//
// # Environment Variable Overrides
//
// Direct overrides with the highest precedence include ECHOMAIL_PORT,
// ECHOMAIL_MODEL, ECHOMAIL_JWT_SECRET, ECHOMAIL_LOG_LEVEL, GEMINI_API_KEY,
// GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, OPENAI_API_KEY, and
// ELEVENLABS_API_KEY.
//
// # Path Management
//
// The Paths type provides XDG Base Directory compliant locations:
//   - Data: ~/.local/share/echomail (XDG_DATA_HOME)
//   - Config: ~/.config/echomail (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/echomail (XDG_CACHE_HOME)
//   - State: ~/.local/state/echomail (XDG_STATE_HOME)
package config
