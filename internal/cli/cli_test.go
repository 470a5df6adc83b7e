package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ipormac/internal/address"
	"ipormac/internal/app"
	"ipormac/internal/domain"
	"ipormac/internal/infra/memory"
)

type repeatSource struct {
	generated domain.GeneratedAddress
}

func (r repeatSource) Generate() domain.GeneratedAddress { return r.generated }

func TestPracticeSession(t *testing.T) {
	sites := app.NewSites(nil)
	service := app.NewDrillService(
		memory.NewSessionStore(time.Minute),
		repeatSource{generated: domain.GeneratedAddress{Address: "2001:db8::1", Type: domain.IPv6}},
		app.NewManagers(memory.NewScoreStores().Open, sites),
		sites,
	)

	in := strings.NewReader("2\nx\n2\n1\ns\nq\n")
	var out bytes.Buffer
	if err := runPractice(context.Background(), service, "", in, &out); err != nil {
		t.Fatalf("practice: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"2001:db8::1",
		"Correct! This is an IPv6 address. 🎉",
		"Pick 1, 2, 3 or 4>",
		"streak 2 🔥🔥",
		"This is actually an IPv6 address.",
		"points 200  attempts 3  correct 2",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	run := func() string {
		cmd := NewGenerateCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--count", "20", "--seed", "99", "--json"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("generate: %v", err)
		}
		return out.String()
	}

	first, second := run(), run()
	if first != second {
		t.Fatalf("same seed produced different output")
	}

	lines := strings.Split(strings.TrimSpace(first), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var g domain.GeneratedAddress
		if err := json.Unmarshal([]byte(line), &g); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		if got := address.Classify(g.Address); got != g.Type {
			t.Fatalf("%q labelled %s but classifies as %s", g.Address, g.Type, got)
		}
	}
}

func TestGenerateRejectsBadCount(t *testing.T) {
	cmd := NewGenerateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--count", "0"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for zero count")
	}
}

func TestStatsAndResetOverSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "log:\n  output: discard\nstore:\n  driver: sqlite\n  sqlite_dir: " + filepath.Join(dir, "data") + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Seed one attempt through the same wiring the commands use.
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctx := context.Background()
	open, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	store, _ := open(domain.DefaultSiteKey)
	manager := app.NewScoreManager(ctx, store, domain.DefaultLevels())
	if _, err := manager.RecordScore(ctx, "q1", 100, 100, domain.MAC, "00:1A:2B:3C:4D:5E"); err != nil {
		t.Fatalf("record: %v", err)
	}
	closeStores()

	stats := NewStatsCmd(&cfgPath)
	var out bytes.Buffer
	stats.SetOut(&out)
	stats.SetArgs([]string{"--json"})
	if err := stats.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
	var snapshot domain.StatsSnapshot
	if err := json.Unmarshal(out.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if snapshot.Overall.TotalAttempts != 1 || snapshot.ByType[domain.MAC].Correct != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	reset := NewResetCmd(&cfgPath)
	reset.SetOut(&bytes.Buffer{})
	reset.SetErr(&bytes.Buffer{})
	reset.SetArgs([]string{})
	if err := reset.Execute(); err == nil {
		t.Fatalf("expected reset without --yes to fail")
	}

	reset = NewResetCmd(&cfgPath)
	reset.SetOut(&bytes.Buffer{})
	reset.SetArgs([]string{"--yes"})
	if err := reset.Execute(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	out.Reset()
	stats = NewStatsCmd(&cfgPath)
	stats.SetOut(&out)
	stats.SetArgs([]string{})
	if err := stats.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out.String(), "Duck Egg") || !strings.Contains(out.String(), "attempts 0") {
		t.Fatalf("expected empty stats after reset, got:\n%s", out.String())
	}
}

func TestLoadDotEnvFillsUnsetVariables(t *testing.T) {
	const key, kept = "IPORMAC_DOTENV_PORT", "IPORMAC_DOTENV_KEPT"
	t.Cleanup(func() { os.Unsetenv(key) })
	t.Setenv(kept, "from-environment")

	path := filepath.Join(t.TempDir(), ".env")
	content := key + "=9090\n" + kept + "=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv(key); got != "9090" {
		t.Fatalf("expected %s from file, got %q", key, got)
	}
	if got := os.Getenv(kept); got != "from-environment" {
		t.Fatalf("environment must win over the file, got %q", got)
	}

	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("a missing file must be ignored, got %v", err)
	}
}
