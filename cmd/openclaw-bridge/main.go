// Command openclaw-bridge connects to an OpenClaw gateway and exposes the
// bridge from the terminal: list and invoke skills, send messages, stream
// events, or serve the registered skills over MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/openclaw/bridge/pkg/adapter"
	"github.com/openclaw/bridge/pkg/bridge"
	"github.com/openclaw/bridge/pkg/config"
	"github.com/openclaw/bridge/pkg/events"
	"github.com/openclaw/bridge/pkg/governance"
	"github.com/openclaw/bridge/pkg/mcpserver"
	"github.com/openclaw/bridge/pkg/telemetry"
)

const version = "v0.1.0"

type globalFlags struct {
	ConfigPath string
	GatewayURL string
	Token      string
	SkillsDir  string
	Timeout    time.Duration
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load(global.ConfigPath)
	if err != nil {
		fatal(err)
	}
	applyOverrides(cfg, global)

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitWithConfig("openclaw-bridge", version, telemetry.Config{
			Exporter:     cfg.Telemetry.Exporter,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		})
		if err != nil {
			fatal(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	switch args[0] {
	case "skills":
		runSkills(global, cfg, args[1:])
	case "invoke":
		runInvoke(ctx, global, cfg, args[1:])
	case "send":
		runSend(ctx, global, cfg, args[1:])
	case "listen":
		runListen(ctx, global, cfg)
	case "mcp":
		runMCP(ctx, global, cfg, args[1:])
	case "help":
		printUsage()
	case "version":
		fmt.Println("openclaw-bridge", version)
	default:
		fatal(fmt.Errorf("unknown command %q", args[0]))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		Timeout: 60 * time.Second,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		value := func(name string) (string, error) {
			if eq := strings.TrimPrefix(arg, name+"="); eq != arg {
				return eq, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("missing value for %s", name)
			}
			i++
			return args[i], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config" || strings.HasPrefix(arg, "--config="):
			v, err := value("--config")
			if err != nil {
				return flags, nil, err
			}
			flags.ConfigPath = v
		case arg == "--url" || strings.HasPrefix(arg, "--url="):
			v, err := value("--url")
			if err != nil {
				return flags, nil, err
			}
			flags.GatewayURL = v
		case arg == "--token" || strings.HasPrefix(arg, "--token="):
			v, err := value("--token")
			if err != nil {
				return flags, nil, err
			}
			flags.Token = v
		case arg == "--skills" || strings.HasPrefix(arg, "--skills="):
			v, err := value("--skills")
			if err != nil {
				return flags, nil, err
			}
			flags.SkillsDir = v
		case arg == "--timeout" || strings.HasPrefix(arg, "--timeout="):
			v, err := value("--timeout")
			if err != nil {
				return flags, nil, err
			}
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = parsed
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func applyOverrides(cfg *config.Config, flags globalFlags) {
	if flags.GatewayURL != "" {
		cfg.Gateway.URL = flags.GatewayURL
	}
	if flags.Token != "" {
		cfg.Gateway.Token = flags.Token
	}
	if flags.SkillsDir != "" {
		cfg.Skills.Dir = flags.SkillsDir
	}
}

// policiesFromConfig maps the governance config section onto a policy set.
func policiesFromConfig(cfg *config.Config) governance.Policies {
	return governance.Policies{
		MaxTotalCost:    cfg.Governance.MaxTotalCost,
		MaxCostPerSkill: cfg.Governance.MaxCostPerSkill,
		Allowlist:       cfg.Governance.Allowlist,
		Blocklist:       cfg.Governance.Blocklist,
		RequireApproval: cfg.Governance.RequireApproval,
	}
}

// buildBridge assembles a bridge with governance from the loaded config. The
// governor is returned separately so long-running commands can apply policy
// updates to it.
func buildBridge(cfg *config.Config) (*bridge.Bridge, *governance.PolicyGovernor, func(), error) {
	policies := policiesFromConfig(cfg)

	var audit governance.AuditLog
	cleanup := func() {}
	if cfg.Audit.DBPath != "" {
		sqlog, err := governance.OpenSQLiteAuditLog(cfg.Audit.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open audit log: %w", err)
		}
		audit = sqlog
		cleanup = func() { _ = sqlog.Close() }
	} else {
		audit = governance.NewMemoryAuditLog()
	}

	approval := governance.NewConsoleApprovalHook(
		governance.WithApprovalInput(os.Stdin),
		governance.WithApprovalOutput(os.Stderr),
	)
	governor := governance.NewPolicyGovernor(policies, approval, audit)

	metrics, err := telemetry.NewBridgeMetrics()
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	b := bridge.New(bridge.Config{
		GatewayURL:     cfg.Gateway.URL,
		AuthToken:      cfg.Gateway.Token,
		ConnectTimeout: cfg.Gateway.ConnectTimeout,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		Reconnect:      cfg.Gateway.Reconnect.Enabled,
		Backoff:        cfg.Gateway.BackoffPolicy(),
		Policies:       &policies,
	},
		bridge.WithGovernor(governor),
		bridge.WithMetrics(metrics),
	)
	return b, governor, cleanup, nil
}

// watchPolicies reloads the config file on change and applies the governance
// section to the live governor. A missing config path means nothing to watch.
func watchPolicies(ctx context.Context, path string, governor *governance.PolicyGovernor, opts ...config.WatcherOption) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	watcher, err := config.NewWatcher(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	watcher.OnChange(func(cfg *config.Config) {
		governor.UpdatePolicies(policiesFromConfig(cfg))
	})
	watcher.Start(ctx)
	return watcher.Stop, nil
}

func registerSkills(b *bridge.Bridge, cfg *config.Config) error {
	if cfg.Skills.Dir == "" {
		return nil
	}
	if _, err := os.Stat(cfg.Skills.Dir); os.IsNotExist(err) {
		return nil
	}
	n, err := b.RegisterSkillsFromDir(cfg.Skills.Dir, adapter.Options{})
	if err != nil {
		return fmt.Errorf("load skills from %s: %w", cfg.Skills.Dir, err)
	}
	if n == 0 {
		fmt.Fprintf(os.Stderr, "warning: no SKILL.md files under %s\n", cfg.Skills.Dir)
	}
	return nil
}

func runSkills(flags globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(fmt.Errorf("usage: openclaw-bridge skills list"))
	}

	b, _, cleanup, err := buildBridge(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()
	if err := registerSkills(b, cfg); err != nil {
		fatal(err)
	}

	registered := b.ListSkills()
	if flags.JSON {
		type skillRow struct {
			ID          string   `json:"id"`
			Description string   `json:"description"`
			Tools       []string `json:"tools"`
			Approval    bool     `json:"requires_approval"`
		}
		rows := make([]skillRow, 0, len(registered))
		for _, s := range registered {
			rows = append(rows, skillRow{
				ID:          s.ID,
				Description: s.Spec.Description,
				Tools:       s.Tools,
				Approval:    s.RequiresApproval,
			})
		}
		printJSON(rows)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTOOLS\tDESCRIPTION")
	for _, s := range registered {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, strings.Join(s.Tools, ","), s.Spec.Description)
	}
	w.Flush()
}

func runInvoke(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 {
		fatal(fmt.Errorf("usage: openclaw-bridge invoke <skill> [params-json]"))
	}
	name := args[0]
	params := map[string]any{}
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			fatal(fmt.Errorf("invalid params json: %w", err))
		}
	}

	b, _, cleanup, err := buildBridge(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()
	if err := registerSkills(b, cfg); err != nil {
		fatal(err)
	}

	if err := b.Connect(ctx); err != nil {
		fatal(err)
	}
	defer b.Disconnect()

	invokeCtx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	res := b.InvokeSkill(invokeCtx, name, params)

	if flags.JSON {
		printJSON(res)
	} else if res.Success {
		fmt.Printf("ok (%s, cost %.4f)\n", res.Duration.Round(time.Millisecond), res.Cost)
		if len(res.Data) > 0 {
			printJSON(res.Data)
		}
	} else {
		fmt.Fprintf(os.Stderr, "failed [%s]: %s\n", res.Code, res.Error)
	}
	if !res.Success {
		os.Exit(1)
	}
}

func runSend(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 {
		fatal(fmt.Errorf("usage: openclaw-bridge send <message>"))
	}

	b, _, cleanup, err := buildBridge(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	if err := b.Connect(ctx); err != nil {
		fatal(err)
	}
	defer b.Disconnect()

	sendCtx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	reply, err := b.SendMessage(sendCtx, strings.Join(args, " "), nil)
	if err != nil {
		fatal(err)
	}
	printJSON(reply)
}

func runListen(ctx context.Context, flags globalFlags, cfg *config.Config) {
	b, governor, cleanup, err := buildBridge(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	stopWatch, err := watchPolicies(ctx, flags.ConfigPath, governor)
	if err != nil {
		fatal(err)
	}
	defer stopWatch()

	b.On(events.EventAny, func(e events.Event) {
		if flags.JSON {
			printJSON(map[string]any{
				"type":      string(e.Type),
				"sessionId": e.SessionID,
				"timestamp": e.Timestamp,
				"payload":   e.Payload,
			})
			return
		}
		fmt.Printf("%s %-16s %v\n", e.Timestamp.Format(time.RFC3339), e.Type, e.Payload)
	})

	if err := b.Connect(ctx); err != nil {
		fatal(err)
	}
	defer b.Disconnect()

	<-ctx.Done()
	stats := b.Stats()
	fmt.Fprintf(os.Stderr, "\n%d events, %d executions (%.0f%% ok)\n",
		stats.EventsProcessed, stats.ToolsExecuted, stats.SuccessRate*100)
}

func runMCP(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "serve" {
		fatal(fmt.Errorf("usage: openclaw-bridge mcp serve"))
	}

	b, governor, cleanup, err := buildBridge(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()
	if err := registerSkills(b, cfg); err != nil {
		fatal(err)
	}

	stopWatch, err := watchPolicies(ctx, flags.ConfigPath, governor)
	if err != nil {
		fatal(err)
	}
	defer stopWatch()

	if err := b.Connect(ctx); err != nil {
		fatal(err)
	}
	defer b.Disconnect()

	srv := mcpserver.New("openclaw-bridge", version, b, nil)
	n := srv.RegisterSkills()
	fmt.Fprintf(os.Stderr, "serving %d skills over MCP stdio\n", n)
	if err := srv.ServeStdio(); err != nil {
		fatal(err)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func printUsage() {
	commands := [][2]string{
		{"skills list", "list registered skills"},
		{"invoke <skill> [json]", "execute a skill through the governance pipeline"},
		{"send <message>", "send a free-form message and print the reply"},
		{"listen", "stream gateway events until interrupted"},
		{"mcp serve", "expose registered skills over MCP stdio"},
		{"version", "print the version"},
	}

	fmt.Println("usage: openclaw-bridge [flags] <command>")
	fmt.Println()
	fmt.Println("commands:")
	for _, c := range commands {
		fmt.Printf("  %-24s %s\n", c[0], c[1])
	}
	fmt.Println()
	fmt.Println("flags:")
	fmt.Println("  --config <path>   config file (YAML)")
	fmt.Println("  --url <ws-url>    gateway websocket url")
	fmt.Println("  --token <token>   bearer token sent after connect")
	fmt.Println("  --skills <dir>    directory of SKILL.md documents")
	fmt.Println("  --timeout <dur>   per-request timeout (default 60s)")
	fmt.Println("  --json            machine-readable output")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
