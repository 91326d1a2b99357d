package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zen-systems/unigate/pkg/adapter"
	"github.com/zen-systems/unigate/pkg/admission"
	"github.com/zen-systems/unigate/pkg/cache"
	"github.com/zen-systems/unigate/pkg/config"
	"github.com/zen-systems/unigate/pkg/dispatch"
	"github.com/zen-systems/unigate/pkg/gateway"
	"github.com/zen-systems/unigate/pkg/health"
	"github.com/zen-systems/unigate/pkg/intent"
	"github.com/zen-systems/unigate/pkg/registry"
	"github.com/zen-systems/unigate/pkg/schema"
	"github.com/zen-systems/unigate/pkg/scorer"
	"github.com/zen-systems/unigate/pkg/telemetry"
)

var version = "dev"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "unigate",
		Short: "Unified gateway for AI workflow platforms",
		Long: `Unigate fronts multiple AI workflow platforms (Dify, RAGFlow, n8n,
	Langflow) behind one API. Each request is classified, scored against
	the registered platforms, and dispatched to the best healthy candidate,
	with caching, rate limiting, and circuit breaking along the way.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(platformsCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var listenFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Long: `Starts the gateway: registers the configured platforms, begins
	health probing, and serves the HTTP API until interrupted.

	SIGHUP reloads the platform registry from the config file without
	dropping in-flight requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if listenFlag != "" {
				cfg.Listen = listenFlag
			}

			parts, err := assemble(cfg)
			if err != nil {
				return err
			}
			defer parts.recorder.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go parts.prober.Run(ctx)
			go parts.cache.RunSweeper(ctx, time.Duration(cfg.Cache.SweepIntervalSecs)*time.Second)

			srv := gateway.NewServer(cfg.Listen, parts.gateway, parts.registry, parts.breaker, parts.recorder)

			reload := make(chan os.Signal, 1)
			signal.Notify(reload, syscall.SIGHUP)
			go func() {
				for range reload {
					if configFile == "" {
						log.Printf("[server] SIGHUP ignored: no config file to reload")
						continue
					}
					next, err := config.Load(configFile)
					if err != nil {
						log.Printf("[server] reload failed: %v", err)
						continue
					}
					if err := parts.registry.Replace(next.Profiles()); err != nil {
						log.Printf("[server] reload failed: %v", err)
						continue
					}
					log.Printf("[server] reloaded %d platforms from %s", len(next.Platforms), configFile)
				}
			}()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
			}

			log.Printf("[server] shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&listenFlag, "listen", "", "override listen address")

	return cmd
}

func askCmd() *cobra.Command {
	var hintFlag string
	var callerFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Route a single query and print the unified response",
		Long: `Runs one query through the full gateway path without starting the
	HTTP server. Useful for smoke-testing a config against live platforms.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			parts, err := assemble(cfg)
			if err != nil {
				return err
			}
			defer parts.recorder.Close()

			req := &schema.Request{
				Query:    args[0],
				CallerID: callerFlag,
				Hint:     schema.PerformanceHint(hintFlag),
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.DispatchTimeout())
			defer cancel()

			resp, err := parts.gateway.Handle(ctx, req)
			if err != nil {
				return err
			}

			if jsonFlag {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Fprintf(os.Stderr, "Routed to %s (category=%s, %dms)\n",
				resp.Platform, resp.Category, resp.Metrics.LatencyMS)
			fmt.Println(resp.Answer)
			for _, src := range resp.Sources {
				fmt.Fprintf(os.Stderr, "  source: %s %s\n", src.Title, src.Reference)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hintFlag, "hint", "", "performance hint (fast, balanced, accurate)")
	cmd.Flags().StringVar(&callerFlag, "caller", "cli", "caller id for rate limiting")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full response envelope as JSON")

	return cmd
}

func platformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "Show configured platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PLATFORM\tKIND\tLATENCY\tCOST\tTIER\tSTRENGTHS")
			for _, p := range cfg.Platforms {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					p.ID, p.Kind, p.Latency, p.Cost, p.Tier, strings.Join(p.Strengths, ", "))
			}
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config.yaml]",
		Short: "Validate a config file",
		Long:  "Validates gateway config YAML without starting anything.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			fmt.Println("Config is valid.")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("unigate", version)
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.Default(), nil
}

// parts holds the assembled gateway stages so commands can reach the
// pieces they need.
type parts struct {
	registry *registry.Registry
	breaker  *health.Breaker
	prober   *health.Prober
	cache    *cache.Cache
	recorder *telemetry.Recorder
	gateway  *gateway.Gateway
}

func assemble(cfg *config.Config) (*parts, error) {
	reg := registry.New()
	if err := reg.Replace(cfg.Profiles()); err != nil {
		return nil, err
	}

	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, err
	}

	sinks := []telemetry.Sink{}
	if cfg.Telemetry.LogEvents {
		sinks = append(sinks, telemetry.NewLogSink())
	}
	if cfg.Telemetry.AuditDB != "" {
		audit, err := telemetry.NewSQLiteSink(cfg.Telemetry.AuditDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit db: %w", err)
		}
		sinks = append(sinks, audit)
	}
	recorder := telemetry.NewRecorder(sinks...)

	breaker := health.NewBreaker(health.Config{
		Window:           cfg.Breaker.Window,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Cooldown(),
	}, health.WithTransitionFunc(func(id string, from, to health.State) {
		recorder.CircuitTransition(id, string(from), string(to))
	}))

	pingers := make(map[string]health.Pinger, len(adapters))
	for id, a := range adapters {
		pingers[id] = a
	}
	prober := health.NewProber(breaker, pingers, cfg.ProbeInterval())

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	responseCache := cache.New(store, cfg.TTLTable())

	controller := admission.NewController(admission.Config{
		CallerRate:    cfg.RateLimit.CallerRate,
		CallerBurst:   cfg.RateLimit.CallerBurst,
		GlobalRate:    cfg.RateLimit.GlobalRate,
		GlobalBurst:   cfg.RateLimit.GlobalBurst,
		QueueDepth:    cfg.RateLimit.QueueDepth,
		MaxQueueDelay: time.Duration(cfg.RateLimit.MaxQueueDelayMs) * time.Millisecond,
	})

	dispatcher := dispatch.New(adapters, breaker, recorder, cfg.DispatchTimeout())
	analyzer := intent.NewAnalyzer(intent.DefaultTable())
	sc := scorer.New(breaker)

	gw := gateway.New(reg, analyzer, sc, responseCache, controller, dispatcher, recorder)

	return &parts{
		registry: reg,
		breaker:  breaker,
		prober:   prober,
		cache:    responseCache,
		recorder: recorder,
		gateway:  gw,
	}, nil
}

func createStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Backend == "redis" {
		store, err := cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	}
	return cache.NewMemoryStore(), nil
}

func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter, len(cfg.Platforms))

	for i := range cfg.Platforms {
		p := &cfg.Platforms[i]
		key := p.ResolvedAPIKey()

		var (
			a   adapter.Adapter
			err error
		)
		switch p.Kind {
		case "dify":
			a, err = adapter.NewDifyAdapter(p.Endpoint, key)
		case "ragflow":
			a, err = adapter.NewRAGFlowAdapter(p.Endpoint, key)
		case "n8n":
			a, err = adapter.NewN8NAdapter(p.Endpoint, key, p.Webhook)
		case "langflow":
			a, err = adapter.NewLangflowAdapter(p.Endpoint, key, p.FlowID)
		case "mock":
			a = adapter.NewMockAdapter(p.ID, adapter.KindConversation)
		default:
			err = fmt.Errorf("unknown platform kind %q", p.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s adapter: %w", p.ID, err)
		}
		adapters[p.ID] = a
	}

	return adapters, nil
}
