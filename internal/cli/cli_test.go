package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	icl "sitebuild/internal/cli"
	"sitebuild/internal/recovery/state"
	"sitebuild/internal/store"
)

const siteConfig = `
site:
  title: Demo
rules:
  - pattern: "/**/*.md"
    filters: [{name: markdown}]
    layout: /default.html
    path: "{dir}/{stem}/index.html"
  - pattern: "/**/*.css"
    path: "{identifier}"
layout_rules:
  - pattern: "/**/*.html"
    filter: template
`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func newSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sitebuild.yaml"), siteConfig)
	writeFile(t, filepath.Join(dir, "content", "about.md"), "# About\n")
	writeFile(t, filepath.Join(dir, "content", "style.css"), "body{}")
	writeFile(t, filepath.Join(dir, "layouts", "default.html"), `<html><title>{{ config "title" }}</title>{{ yield }}</html>`)
	return dir
}

func run(t *testing.T, args ...string) (icl.CLIResult, string, error) {
	t.Helper()
	var out bytes.Buffer
	res, err := icl.Run(context.Background(), args, icl.Streams{Out: &out})
	return res, out.String(), err
}

func TestCompile_WritesOutputAndIsIncremental(t *testing.T) {
	siteDir := newSite(t)
	args := []string{"compile", "--site", siteDir, "--trace", "trace.json", "--metrics", "metrics.prom"}

	res, out, err := run(t, args...)
	if err != nil {
		t.Fatalf("run1 err: %v", err)
	}
	if res.ExitCode != icl.ExitSuccess {
		t.Fatalf("run1 exit: %d", res.ExitCode)
	}
	if !strings.Contains(out, "compiled 2 of 2 item reps") {
		t.Fatalf("unexpected summary: %q", out)
	}
	page := string(readFile(t, filepath.Join(siteDir, "output", "about", "index.html")))
	if page != "<html><title>Demo</title><h1>About</h1>\n</html>" {
		t.Fatalf("unexpected page: %q", page)
	}
	if string(readFile(t, filepath.Join(siteDir, "output", "style.css"))) != "body{}" {
		t.Fatalf("unexpected stylesheet")
	}
	if !strings.Contains(string(readFile(t, filepath.Join(siteDir, "metrics.prom"))), "sitebuild_events_total") {
		t.Fatalf("metrics not written")
	}
	trace1 := readFile(t, filepath.Join(siteDir, "trace.json"))
	if !bytes.Contains(trace1, []byte(`"kind":"RepCompiled"`)) {
		t.Fatalf("trace lacks compiled reps: %s", trace1)
	}

	res, out, err = run(t, args...)
	if err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("run2: exit=%d err=%v", res.ExitCode, err)
	}
	if !strings.Contains(out, "compiled 0 of 2 item reps, 0 files changed") {
		t.Fatalf("second run recompiled: %q", out)
	}
	trace2 := readFile(t, filepath.Join(siteDir, "trace.json"))
	if bytes.Contains(trace2, []byte(`"kind":"RepCompiled"`)) {
		t.Fatalf("second trace should only restore from cache: %s", trace2)
	}

	st, err := state.NewStore(store.PathFor(siteDir, filepath.Join(siteDir, "output"), "runs"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	runs, err := st.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[1].PreviousRunID == nil || *runs[1].PreviousRunID != runs[0].RunID {
		t.Fatalf("expected two linked runs, got %+v", runs)
	}
}

func TestOutdated_ListsChangedItems(t *testing.T) {
	siteDir := newSite(t)
	if res, _, err := run(t, "compile", "--site", siteDir); err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("compile: exit=%d err=%v", res.ExitCode, err)
	}
	writeFile(t, filepath.Join(siteDir, "content", "about.md"), "# About us\n")

	res, out, err := run(t, "outdated", "--site", siteDir)
	if err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("outdated: exit=%d err=%v", res.ExitCode, err)
	}
	if len(res.Outdated) != 1 || !strings.Contains(out, "/about.md") || !strings.Contains(out, "content_modified") {
		t.Fatalf("unexpected report: %q", out)
	}
	if strings.Contains(out, "/style.css") {
		t.Fatalf("unchanged item reported: %q", out)
	}
}

func TestExitCodes(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		res, _, err := run(t, "compile", "--site", t.TempDir())
		if err == nil || res.ExitCode != icl.ExitConfigError {
			t.Fatalf("expected config error, got exit=%d err=%v", res.ExitCode, err)
		}
	})
	t.Run("invalid config", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "sitebuild.yaml"), "unknown_key: 1\n")
		res, _, err := run(t, "compile", "--site", dir)
		if err == nil || res.ExitCode != icl.ExitConfigError {
			t.Fatalf("expected config error, got exit=%d err=%v", res.ExitCode, err)
		}
	})
	t.Run("unknown layout", func(t *testing.T) {
		dir := newSite(t)
		writeFile(t, filepath.Join(dir, "sitebuild.yaml"), strings.Replace(siteConfig, "/default.html", "/missing.html", 1))
		res, _, err := run(t, "compile", "--site", dir)
		if err == nil || res.ExitCode != icl.ExitCompileFailure {
			t.Fatalf("expected compile failure, got exit=%d err=%v", res.ExitCode, err)
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := icl.Run(ctx, []string{"compile", "--site", newSite(t)}, icl.Streams{})
		if !errors.Is(err, context.Canceled) || res.ExitCode != icl.ExitInternalError {
			t.Fatalf("expected interrupted run, got exit=%d err=%v", res.ExitCode, err)
		}
	})
	t.Run("invalid invocation", func(t *testing.T) {
		res, _, err := run(t, "compile")
		if err == nil || res.ExitCode != icl.ExitInvalidInvocation {
			t.Fatalf("expected invalid invocation, got exit=%d err=%v", res.ExitCode, err)
		}
	})
}
