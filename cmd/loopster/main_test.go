package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"pkt.systems/loopster/internal/appconfig"
	"pkt.systems/loopster/internal/capture"
	"pkt.systems/loopster/internal/llm"
	"pkt.systems/pslog"
)

type cliResult struct {
	code int
	out  string
	logs string
}

// runCLI executes the root command with an isolated HOME so no user config
// leaks into the test.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out, logs bytes.Buffer
	logger := pslog.NewWithOptions(&logs, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.InfoLevel,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	code := execute(ctx, root)
	return cliResult{code: code, out: out.String(), logs: logs.String()}
}

func stubCapture(t *testing.T, content string, exitCode int) *[]capture.Request {
	t.Helper()
	var seen []capture.Request
	prev := runCapture
	runCapture = func(_ context.Context, req capture.Request) (capture.Result, error) {
		seen = append(seen, req)
		if err := os.WriteFile(req.OutputPath, []byte(req.Header+content), 0o644); err != nil {
			return capture.Result{}, err
		}
		return capture.Result{SessionID: "test", ExitCode: exitCode, TimedOut: exitCode == capture.TimeoutExitCode}, nil
	}
	t.Cleanup(func() { runCapture = prev })
	return &seen
}

func stubLLM(t *testing.T, responses ...string) *llm.Fake {
	t.Helper()
	fake := llm.NewFake(responses...)
	prev := newLLMClient
	newLLMClient = func(appconfig.Config, string, string) (llm.Client, error) {
		return fake, nil
	}
	t.Cleanup(func() { newLLMClient = prev })
	return fake
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"capture", "sanitize", "summarize", "analyze", "run", "ask", "config", "models", "version"} {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}

func TestExecuteMapsErrors(t *testing.T) {
	res := runCLI(t, "", "no-such-command")
	if res.code != 1 {
		t.Fatalf("expected exit 1 for unknown command, got %d", res.code)
	}
	if !strings.Contains(res.logs, "loopster command failed") {
		t.Fatalf("expected failure to be logged, got %q", res.logs)
	}
}

func TestVersionCommand(t *testing.T) {
	res := runCLI(t, "", "version")
	if res.code != 0 || !strings.HasPrefix(res.out, "loopster ") {
		t.Fatalf("unexpected version output %q (code %d)", res.out, res.code)
	}
}

func TestModelsListsKnownItems(t *testing.T) {
	res := runCLI(t, "", "models")
	if res.code != 0 {
		t.Fatalf("expected exit 0, got %d", res.code)
	}
	for _, want := range []string{"OpenAI models:", "gpt-4o-mini", "gpt-5", "Google Gemini models:", "gemini-1.5-flash", "gemini-2.5-pro", "fake:"} {
		if !strings.Contains(res.out, want) {
			t.Fatalf("expected %q in %q", want, res.out)
		}
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	res := runCLI(t, "", "config", "--init", "--config", path)
	if res.code != 0 || !strings.Contains(res.out, "config written") {
		t.Fatalf("unexpected init output %q (code %d)", res.out, res.code)
	}
	res = runCLI(t, "", "config", "--validate", "--config", path)
	if res.code != 0 || !strings.Contains(res.out, "[loopster] config OK") {
		t.Fatalf("unexpected validate output %q (code %d)", res.out, res.code)
	}
	res = runCLI(t, "", "config", "--show", "--config", path, "--set", "capture.timeout_seconds=30")
	if res.code != 0 || !strings.Contains(res.out, "timeout_seconds: 30") {
		t.Fatalf("expected override in shown config, got %q", res.out)
	}
	res = runCLI(t, "", "config", "--validate", "--config", path, "--set", "capture.method=bogus")
	if res.code != 2 || !strings.Contains(res.out, "config invalid") {
		t.Fatalf("expected invalid config exit 2, got %q (code %d)", res.out, res.code)
	}
}

func TestConfigLegacyMethodWarns(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	if res := runCLI(t, "", "config", "--init", "--config", path); res.code != 0 {
		t.Fatalf("init failed: %q", res.out)
	}
	res := runCLI(t, "", "config", "--show", "--config", path, "--set", "capture.method=pty")
	if res.code != 0 {
		t.Fatalf("expected exit 0, got %d: %q", res.code, res.out)
	}
	if !strings.Contains(res.out, "method: pipe") {
		t.Fatalf("expected pty to be shown as pipe, got %q", res.out)
	}
	if !strings.Contains(res.logs, "config warning") || !strings.Contains(res.logs, "pty") {
		t.Fatalf("expected a config warning in logs, got %q", res.logs)
	}
}

func TestConfigSaveToml(t *testing.T) {
	path := t.TempDir() + "/loopster.toml"
	res := runCLI(t, "", "config", "--save", path, "--set", "model=fake:x")
	if res.code != 0 {
		t.Fatalf("expected exit 0, got %d: %q", res.code, res.out)
	}
	if got := readFile(t, path); !strings.Contains(got, `model = "fake:x"`) {
		t.Fatalf("expected toml output, got %q", got)
	}
}

func TestProcessExitCode(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: 0},
		{in: 3, want: 3},
		{in: 124, want: 124},
		{in: -15, want: 143},
		{in: -9, want: 137},
	}
	for _, tc := range tests {
		if got := processExitCode(tc.in); got != tc.want {
			t.Fatalf("processExitCode(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestShellJoin(t *testing.T) {
	got := shellJoin([]string{"printf", "%s\n", "it's", "plain-arg", ""})
	want := `printf '%s` + "\n" + `' 'it'\''s' plain-arg ''`
	if got != want {
		t.Fatalf("shellJoin = %q, want %q", got, want)
	}
}

func TestParseEnv(t *testing.T) {
	env, err := parseEnv([]string{"A=1", "B=x=y", "C="})
	if err != nil {
		t.Fatalf("parseEnv: %v", err)
	}
	if env["A"] != "1" || env["B"] != "x=y" || env["C"] != "" {
		t.Fatalf("unexpected env %v", env)
	}
	if _, err := parseEnv([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
	if _, err := parseEnv([]string{"=v"}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "y\n", want: true},
		{in: "YES\n", want: true},
		{in: "n\n", want: false},
		{in: "\n", want: false},
		{in: "", want: false},
	}
	for _, tc := range tests {
		if got := confirm(strings.NewReader(tc.in), io.Discard, "? "); got != tc.want {
			t.Fatalf("confirm(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestConfigKeys(t *testing.T) {
	res := runCLI(t, "", "config", "--keys")
	if res.code != 0 {
		t.Fatalf("expected exit 0, got %d", res.code)
	}
	for _, want := range []string{"capture.timeout_seconds\n", "llm.openai.api_key_env\n", "output.color\n"} {
		if !strings.Contains(res.out, want) {
			t.Fatalf("expected %q in %q", want, res.out)
		}
	}
}

func TestAskAttachesFiles(t *testing.T) {
	fake := stubLLM(t, "ANSWER")
	path := t.TempDir() + "/notes.txt"
	writeFile(t, path, "alpha")

	res := runCLI(t, "", "ask", "--system", "Be brief.", "--prompt", "Summarize:", "--file", path, "--model", "fake:q")
	if res.code != 0 || res.out != "ANSWER\n" {
		t.Fatalf("unexpected output %q (code %d)", res.out, res.code)
	}
	req := fake.Requests()[0]
	if req.System != "Be brief." || req.User != "Summarize:\n\nFILES:\n\n=== "+path+" ===\n\nalpha" || req.Model != "fake:q" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestAskMissingFile(t *testing.T) {
	res := runCLI(t, "", "ask", "--system", "s", "--file", t.TempDir()+"/missing", "--model", "fake:q")
	if res.code != 2 || !strings.Contains(res.out, "[loopster] ask: read ") {
		t.Fatalf("unexpected output %q (code %d)", res.out, res.code)
	}
}
