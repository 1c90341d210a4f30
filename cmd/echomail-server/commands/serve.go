package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/echomail-ai/echomail/internal/agent"
	"github.com/echomail-ai/echomail/internal/config"
	"github.com/echomail-ai/echomail/internal/logging"
	"github.com/echomail-ai/echomail/internal/mail"
	"github.com/echomail-ai/echomail/internal/metrics"
	"github.com/echomail-ai/echomail/internal/provider"
	"github.com/echomail-ai/echomail/internal/server"
	"github.com/echomail-ai/echomail/internal/session"
	"github.com/echomail-ai/echomail/internal/stream"
	"github.com/echomail-ai/echomail/internal/tts"
)

var (
	servePort int
	serveHost string
	configDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the EchoMail HTTP server",
	Long: `Start the EchoMail server: authenticates clients, manages their
conversation sessions, and streams agent responses over SSE.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().StringVar(&configDir, "config", "", "Directory to load configuration from")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Local development convenience; absence is not an error.
	_ = godotenv.Load()

	dir := configDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.GetPaths().EnsurePaths(); err != nil {
		return err
	}

	log := logging.Component("main")
	log.Info().Str("version", Version).Msg("starting echomail server")

	ctx := context.Background()

	gemini, err := provider.NewGemini(ctx, provider.GeminiConfig{
		APIKey:       cfg.Gemini.APIKey,
		DefaultModel: cfg.Agent.Model,
	})
	if err != nil {
		return err
	}

	mailSvc, err := mail.NewGmailService(ctx, mail.GmailOptions{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RefreshToken: cfg.Gmail.RefreshToken,
		TokenDir:     cfg.Gmail.TokenDir,
	})
	if err != nil {
		return err
	}

	synth, err := tts.New(tts.Config{
		Provider: cfg.TTS.Provider,
		OpenAI: tts.OpenAIConfig{
			APIKey: cfg.TTS.OpenAIAPIKey,
			Voice:  cfg.TTS.OpenAIVoice,
		},
		ElevenLabs: tts.ElevenLabsConfig{
			APIKey:  cfg.TTS.ElevenLabsAPIKey,
			VoiceID: cfg.TTS.ElevenLabsVoiceID,
		},
	})
	if err != nil {
		if !errors.Is(err, tts.ErrNotConfigured) {
			return err
		}
		log.Warn().Msg("no speech provider configured; audio responses disabled")
		synth = nil
	}

	m := metrics.New()
	defer m.Close()

	registry := session.NewRegistry(session.Options{
		MaxSessions:   cfg.Session.MaxSessions,
		IdleTimeout:   cfg.Session.IdleTimeout.Std(),
		SweepInterval: cfg.Session.SweepInterval.Std(),
		NewAgent: func(id string, ch *stream.Channel) *agent.Agent {
			return agent.New(agent.Options{
				SessionID:       id,
				Provider:        gemini,
				Mail:            mailSvc,
				Synthesizer:     synth,
				Channel:         ch,
				Model:           cfg.Agent.Model,
				HumanizeResults: cfg.Agent.Humanize(),
			})
		},
	})

	srv := server.New(&server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		EnableCORS:        cfg.Server.EnableCORS,
		JWTSecret:         cfg.Auth.JWTSecret,
		SetupTimeout:      cfg.Server.SetupTimeout.Std(),
		HeartbeatInterval: cfg.Server.HeartbeatInterval.Std(),
	}, registry, m)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		registry.Destroy()
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	registry.Destroy()

	log.Info().Msg("server stopped")
	return nil
}
