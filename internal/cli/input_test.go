package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseInvocation_DeterministicStruct(t *testing.T) {
	siteDir := t.TempDir()
	args := []string{
		"--site", siteDir,
		"compile",
		"--config", "conf/../sitebuild.yaml",
		"--output-dir", "out/./",
		"--trace", "traces/../trace.json",
		"--log-level", "debug",
	}

	inv1, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inv2, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(inv1, inv2) {
		t.Fatalf("expected identical invocations, got\n%#v\n%#v", inv1, inv2)
	}

	if inv1.Command != CommandCompile {
		t.Fatalf("unexpected command %q", inv1.Command)
	}
	if inv1.SiteDir != filepath.Clean(siteDir) {
		t.Fatalf("site dir not canonicalized: %q", inv1.SiteDir)
	}
	if inv1.ConfigPath != filepath.Join(siteDir, "sitebuild.yaml") {
		t.Fatalf("config path not resolved: %q", inv1.ConfigPath)
	}
	if inv1.OutputDir != filepath.Join(siteDir, "out") {
		t.Fatalf("output dir not resolved: %q", inv1.OutputDir)
	}
	if inv1.TracePath != filepath.Join(siteDir, "trace.json") {
		t.Fatalf("trace not resolved: %q", inv1.TracePath)
	}
	if inv1.LogLevel != "debug" {
		t.Fatalf("log level not kept: %q", inv1.LogLevel)
	}
}

func TestParseInvocation_DefaultConfig(t *testing.T) {
	siteDir := t.TempDir()
	inv, err := ParseInvocation([]string{"outdated", "--site", siteDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Command != CommandOutdated {
		t.Fatalf("unexpected command %q", inv.Command)
	}
	if inv.ConfigPath != filepath.Join(siteDir, "sitebuild.yaml") {
		t.Fatalf("default config not used: %q", inv.ConfigPath)
	}
	if inv.OutputDir != "" {
		t.Fatalf("output dir should stay unset: %q", inv.OutputDir)
	}
}

func TestParseInvocation_ResolvesRelativePathsAgainstSite_NotCwd(t *testing.T) {
	siteDir := t.TempDir()
	otherCwd := t.TempDir()

	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })
	if err := os.Chdir(otherCwd); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}

	inv, err := ParseInvocation([]string{"compile", "--site", siteDir, "--metrics", "m.prom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.MetricsPath != filepath.Join(siteDir, "m.prom") {
		t.Fatalf("metrics path resolved against cwd: %q", inv.MetricsPath)
	}
}

func TestParseInvocation_InvalidInvocations(t *testing.T) {
	abs := t.TempDir()
	cases := []struct {
		name string
		args []string
	}{
		{"no command", []string{"--site", abs}},
		{"missing site", []string{"compile"}},
		{"relative site", []string{"compile", "--site", "site"}},
		{"unknown flag", []string{"compile", "--site", abs, "--nope"}},
		{"unknown command", []string{"deploy", "--site", abs}},
		{"positional", []string{"compile", "--site", abs, "extra"}},
		{"bad log level", []string{"compile", "--site", abs, "--log-level", "loud"}},
		{"bad log format", []string{"compile", "--site", abs, "--log-format", "xml"}},
		{"dot path", []string{"compile", "--site", abs, "--output-dir", "."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseInvocation(tc.args)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := ExitCode(err); got != ExitInvalidInvocation {
				t.Fatalf("expected exit %d, got %d (%v)", ExitInvalidInvocation, got, err)
			}
		})
	}
}

func TestParseInvocation_Help(t *testing.T) {
	inv, err := ParseInvocation([]string{"--help"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Command != CommandHelp || inv.Help == "" {
		t.Fatalf("expected help, got %#v", inv)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != ExitSuccess {
		t.Fatalf("nil error should be success")
	}
	if ExitCode(os.ErrNotExist) != ExitInternalError {
		t.Fatalf("unknown errors should be internal")
	}
	if ExitCode(&InvocationError{Message: "x"}) != ExitInvalidInvocation {
		t.Fatalf("zero exit code should default to invalid invocation")
	}
}
