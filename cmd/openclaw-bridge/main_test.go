package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openclaw/bridge/pkg/config"
	"github.com/openclaw/bridge/pkg/governance"
)

func TestParseGlobalFlags(t *testing.T) {
	flags, rest, err := parseGlobalFlags([]string{
		"--config", "bridge.yaml",
		"--url=ws://gw:18789",
		"--token", "secret",
		"--timeout", "5s",
		"--json",
		"invoke", "web-search",
	})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if flags.ConfigPath != "bridge.yaml" {
		t.Errorf("ConfigPath = %q", flags.ConfigPath)
	}
	if flags.GatewayURL != "ws://gw:18789" {
		t.Errorf("GatewayURL = %q", flags.GatewayURL)
	}
	if flags.Token != "secret" {
		t.Errorf("Token = %q", flags.Token)
	}
	if flags.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", flags.Timeout)
	}
	if !flags.JSON {
		t.Error("JSON flag not set")
	}
	if len(rest) != 2 || rest[0] != "invoke" || rest[1] != "web-search" {
		t.Errorf("rest = %v", rest)
	}
}

func TestParseGlobalFlagsErrors(t *testing.T) {
	cases := [][]string{
		{"--config"},
		{"--timeout", "banana"},
		{"--frobnicate"},
	}
	for _, args := range cases {
		if _, _, err := parseGlobalFlags(args); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestParseGlobalFlagsHelp(t *testing.T) {
	flags, rest, err := parseGlobalFlags([]string{"--help", "skills"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if !flags.Help {
		t.Error("Help flag not set")
	}
	if rest != nil {
		t.Errorf("rest = %v, want nil after --help", rest)
	}
}

func TestParseGlobalFlagsDoubleDash(t *testing.T) {
	_, rest, err := parseGlobalFlags([]string{"--json", "--", "--not-a-flag"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if len(rest) != 1 || rest[0] != "--not-a-flag" {
		t.Errorf("rest = %v", rest)
	}
}

func TestPoliciesFromConfig(t *testing.T) {
	cfg := &config.Config{Governance: config.GovernanceConfig{
		MaxTotalCost:    12.5,
		MaxCostPerSkill: 1.5,
		Allowlist:       []string{"web-*"},
		Blocklist:       []string{"secrets-*"},
		RequireApproval: []string{"deploy-*"},
	}}

	p := policiesFromConfig(cfg)
	if p.MaxTotalCost != 12.5 || p.MaxCostPerSkill != 1.5 {
		t.Errorf("cost limits = %v / %v", p.MaxTotalCost, p.MaxCostPerSkill)
	}
	if len(p.Allowlist) != 1 || p.Allowlist[0] != "web-*" {
		t.Errorf("Allowlist = %v", p.Allowlist)
	}
	if len(p.Blocklist) != 1 || len(p.RequireApproval) != 1 {
		t.Errorf("lists = %v / %v", p.Blocklist, p.RequireApproval)
	}
}

func TestWatchPoliciesAppliesReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bridge.yaml")
	writeFile := func(doc string) {
		t.Helper()
		if err := os.WriteFile(configPath, []byte(doc), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	writeFile("governance:\n  blocklist: []\n")

	governor := governance.NewPolicyGovernor(governance.Policies{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop, err := watchPolicies(ctx, configPath, governor,
		config.WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("watchPolicies: %v", err)
	}
	defer stop()

	writeFile("governance:\n  blocklist:\n    - web-*\n")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(configPath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		result, err := governor.Check(ctx, "web-search", nil)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !result.Allowed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("reloaded blocklist never applied to the governor")
}

func TestWatchPoliciesNoPath(t *testing.T) {
	governor := governance.NewPolicyGovernor(governance.Policies{}, nil, nil)
	stop, err := watchPolicies(context.Background(), "", governor)
	if err != nil {
		t.Fatalf("watchPolicies: %v", err)
	}
	stop()
}
