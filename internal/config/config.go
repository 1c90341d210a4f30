package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
)

// Duration wraps time.Duration so config files can use human-readable
// values like "30m" or "45s". Bare numbers are treated as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value) * time.Second)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration value: %v", v)
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for the echomail server.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Session SessionConfig `json:"session"`
	Agent   AgentConfig   `json:"agent"`
	Gemini  GeminiConfig  `json:"gemini"`
	Gmail   GmailConfig   `json:"gmail"`
	TTS     TTSConfig     `json:"tts"`
	Auth    AuthConfig    `json:"auth"`
	Log     LogConfig     `json:"log"`
}

// ServerConfig controls the HTTP listener and the streaming endpoint.
type ServerConfig struct {
	Host              string   `json:"host"`
	Port              int      `json:"port"`
	EnableCORS        bool     `json:"enableCors"`
	SetupTimeout      Duration `json:"setupTimeout"`
	HeartbeatInterval Duration `json:"heartbeatInterval"`
}

// SessionConfig controls the session registry.
type SessionConfig struct {
	MaxSessions   int      `json:"maxSessions"`
	IdleTimeout   Duration `json:"idleTimeout"`
	SweepInterval Duration `json:"sweepInterval"`
}

// AgentConfig controls the conversational agent.
type AgentConfig struct {
	Model           string `json:"model"`
	HumanizeResults *bool  `json:"humanizeResults"`
}

// Humanize reports whether tool results should be rewritten into
// conversational prose. Defaults to true.
func (a AgentConfig) Humanize() bool {
	return a.HumanizeResults == nil || *a.HumanizeResults
}

type GeminiConfig struct {
	APIKey string `json:"apiKey"`
}

// GmailConfig holds the OAuth client credentials and token storage
// location for the Gmail account.
type GmailConfig struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RefreshToken string `json:"refreshToken"`
	TokenDir     string `json:"tokenDir"`
}

// TTSConfig selects and configures speech synthesis providers. When the
// primary provider fails, the other is tried as a fallback.
type TTSConfig struct {
	Provider          string `json:"provider"`
	OpenAIAPIKey      string `json:"openaiApiKey"`
	OpenAIVoice       string `json:"openaiVoice"`
	ElevenLabsAPIKey  string `json:"elevenlabsApiKey"`
	ElevenLabsVoiceID string `json:"elevenlabsVoiceId"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwtSecret"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Default returns a Config with every tunable set to its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			EnableCORS:        true,
			SetupTimeout:      Duration(60 * time.Second),
			HeartbeatInterval: Duration(30 * time.Second),
		},
		Session: SessionConfig{
			MaxSessions:   100,
			IdleTimeout:   Duration(30 * time.Minute),
			SweepInterval: Duration(5 * time.Minute),
		},
		Agent: AgentConfig{
			Model: "gemini-2.0-flash",
		},
		TTS: TTSConfig{
			Provider:    "openai",
			OpenAIVoice: "alloy",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from multiple sources (priority order):
// 1. Built-in defaults
// 2. Global config (~/.config/echomail/)
// 3. Project config (echomail.json / echomail.jsonc in directory)
// 4. ECHOMAIL_CONFIG file
// 5. Environment variables
func Load(directory string) (*Config, error) {
	config := Default()

	loaded := make(map[string]bool)
	loadOnce := func(path, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if loaded[absPath] {
			return nil
		}
		if err := loadConfigFile(path, config, baseDir); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded[absPath] = true
		return nil
	}

	globalPath := GetPaths().Config
	for _, name := range []string{"echomail.json", "echomail.jsonc"} {
		if err := loadOnce(filepath.Join(globalPath, name), globalPath); err != nil {
			return nil, err
		}
	}

	if directory != "" {
		for _, name := range []string{"echomail.json", "echomail.jsonc"} {
			if err := loadOnce(filepath.Join(directory, name), directory); err != nil {
				return nil, err
			}
		}
	}

	if configPath := os.Getenv("ECHOMAIL_CONFIG"); configPath != "" {
		if err := loadOnce(configPath, filepath.Dir(configPath)); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(config)

	if config.Gmail.TokenDir == "" {
		config.Gmail.TokenDir = GetPaths().TokenDir()
	}

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
// Fields present in the file override the current values; absent fields
// keep whatever the earlier sources set.
func loadConfigFile(path string, config *Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	if err := json.Unmarshal(data, config); err != nil {
		return err
	}
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // keep the placeholder if the file is missing
		}

		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")
		return escaped
	})

	return []byte(str)
}

// applyEnvOverrides applies environment variable overrides. These have
// the highest precedence.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("ECHOMAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ECHOMAIL_HOST"); host != "" {
		config.Server.Host = host
	}
	if model := os.Getenv("ECHOMAIL_MODEL"); model != "" {
		config.Agent.Model = model
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		config.Gmail.ClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		config.Gmail.ClientSecret = secret
	}
	if token := os.Getenv("GOOGLE_REFRESH_TOKEN"); token != "" {
		config.Gmail.RefreshToken = token
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.TTS.OpenAIAPIKey = key
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		config.TTS.ElevenLabsAPIKey = key
	}
	if secret := os.Getenv("ECHOMAIL_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if level := os.Getenv("ECHOMAIL_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// Validate checks that required credentials are present.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini API key is required (set GEMINI_API_KEY or gemini.apiKey)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set ECHOMAIL_JWT_SECRET or auth.jwtSecret)")
	}
	if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" {
		return fmt.Errorf("google OAuth client credentials are required")
	}
	return nil
}

// Save saves the configuration to a file.
func Save(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
