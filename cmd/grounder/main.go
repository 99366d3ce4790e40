package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"grounder/internal/agent"
	"grounder/internal/ai"
	"grounder/internal/audit"
	"grounder/internal/config"
	"grounder/internal/gateway"
	"grounder/internal/knowledge"
	"grounder/internal/maintenance"
	"grounder/internal/ratelimit"
	"grounder/internal/seed"
	"grounder/internal/sessions"
	"grounder/internal/version"
)

var (
	cfgFile string
	verbose bool
	port    int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grounder",
	Short: "Grounder - retrieval-grounded question answering server",
	Long: `Grounder is an HTTP server that answers questions by retrieving
relevant snippets from a curated knowledge base and grounding an LLM
completion in them. Questions without a good knowledge match are answered
from general knowledge instead.`,
	Version: version.Full(),
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Grounder HTTP server",
	Long: `Start the Grounder HTTP server. This is the main mode: it serves the
chat endpoint, the admin knowledge API, and the WebSocket chat channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// seedCmd bulk-loads knowledge entries from a YAML file
var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Bulk-load knowledge entries from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(args[0])
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Grounder %s\n", version.Full())
		buildInfo := version.GetBuildInfo()

		if buildInfo.GitCommit != "unknown" {
			fmt.Printf("Git commit: %s\n", buildInfo.GitCommit)
		}
		if buildInfo.BuildDate != "unknown" {
			fmt.Printf("Build date: %s\n", buildInfo.BuildDate)
		}
		fmt.Printf("Go version: %s\n", buildInfo.GoVersion)

		return nil
	},
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// Server command flags
	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (overrides config)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)

	// If no command is specified, default to server
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}
}

func initLogging() {
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Verbose logging enabled")
	}
}

// buildProviders constructs the completion and embedding gateways from
// config. A missing provider or api key leaves the capability nil; handlers
// report it as unavailable instead of crashing.
func buildProviders(cfg *config.Config) (ai.Provider, ai.Embedder) {
	var provider ai.Provider
	completion := cfg.AI.Completion
	switch {
	case completion.Provider == "" || completion.APIKey == "":
		log.Println("WARNING: No completion provider configured, chat will be unavailable")
	case completion.Provider == "anthropic":
		if p, err := ai.NewAnthropicProvider("anthropic", completion.APIKey, completion.Model); err != nil {
			log.Printf("WARNING: Anthropic provider unavailable: %v", err)
		} else {
			provider = p
		}
	case completion.Provider == "openai":
		if p, err := ai.NewOpenAIProvider("openai", completion.APIKey, completion.Model); err != nil {
			log.Printf("WARNING: OpenAI provider unavailable: %v", err)
		} else {
			provider = p
		}
	default:
		log.Printf("WARNING: Unknown completion provider %q, chat will be unavailable", completion.Provider)
	}

	var embedder ai.Embedder
	embedding := cfg.AI.Embedding
	switch {
	case embedding.Provider == "" || embedding.APIKey == "":
		log.Println("WARNING: No embedding provider configured, ingestion and retrieval will be unavailable")
	case embedding.Provider == "openai":
		embedder = ai.NewOpenAIEmbedder(embedding.APIKey, embedding.Model, embedding.Dimensions)
	default:
		log.Printf("WARNING: Unknown embedding provider %q, ingestion and retrieval will be unavailable", embedding.Provider)
	}

	return provider, embedder
}

// loadStore creates the data dir and loads the knowledge snapshot.
func loadStore(cfg *config.Config) (*knowledge.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store := knowledge.NewStore(cfg.SnapshotPath())
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load knowledge store: %w", err)
	}
	return store, nil
}

func runServer() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != 0 {
		cfg.Port = port
	}

	// Refuse to run the admin surface open.
	if cfg.AdminToken == "" {
		return fmt.Errorf("admin_token is not configured (set GROUNDER_ADMIN_TOKEN or admin_token in %s)", cfgFile)
	}

	provider, embedder := buildProviders(cfg)

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}
	log.Printf("Knowledge store loaded: %d entries", store.Len())

	sessionStore := sessions.NewStore(cfg.Memory.Window)

	chatAgent := agent.New(provider, embedder, store, sessionStore, agent.Config{
		TopK:      cfg.Retrieval.TopK,
		Threshold: cfg.Retrieval.Threshold, // pointer: an explicit 0 survives
		MaxTokens: cfg.AI.Completion.MaxTokens,
	})

	var auditLog *audit.Log
	if cfg.Audit.Enabled {
		auditLog, err = audit.Open(cfg.AuditPath())
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer auditLog.Close()
	}

	var limiter *ratelimit.SlidingWindow
	if cfg.RateLimiting.Enabled {
		limiter = ratelimit.NewSlidingWindow(
			time.Duration(cfg.RateLimiting.WindowSeconds)*time.Second,
			cfg.RateLimiting.MaxRequests,
		)
		log.Printf("Rate limiting enabled: %d requests per %ds", cfg.RateLimiting.MaxRequests, cfg.RateLimiting.WindowSeconds)
	}

	sweeper := maintenance.New(maintenance.Config{
		Schedule:       cfg.Maintenance.Schedule,
		SessionIdleTTL: time.Duration(cfg.Memory.IdleTTLMinutes) * time.Minute,
		AuditRetention: time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour,
	}, sessionStore, auditLog, limiter)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance scheduler: %w", err)
	}
	defer sweeper.Stop()

	gw := gateway.New(cfg, chatAgent, store, sessionStore, embedder, auditLog, limiter)

	// Setup graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gw.Shutdown(ctx); err != nil {
			log.Printf("WARNING: Shutdown error: %v", err)
		}
	}()

	log.Printf("Starting Grounder %s on port %d", version.Info(), cfg.Port)
	if err := gw.Start(); err != nil {
		return fmt.Errorf("gateway failed: %w", err)
	}

	log.Println("Gateway stopped gracefully")
	return nil
}

func runSeed(seedFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	_, embedder := buildProviders(cfg)

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	added, err := seed.Run(ctx, seedFile, embedder, store)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Printf("Seeded %d entries (%d total in store)\n", added, store.Len())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
