package cli

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"sitebuild/internal/config"
)

const (
	ExitSuccess           = 0
	ExitCompileFailure    = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

type Command string

const (
	CommandCompile  Command = "compile"
	CommandOutdated Command = "outdated"
	CommandHelp     Command = "help"
)

// Invocation is the fully resolved description of one CLI call.
//
// SiteDir is required and absolute; every relative path is resolved under
// it, so nothing depends on the process working directory.
type Invocation struct {
	Command Command

	SiteDir    string
	ConfigPath string

	// OutputDir, LogLevel and LogFormat override the configuration when
	// set.
	OutputDir string
	LogLevel  string
	LogFormat string

	TracePath   string
	MetricsPath string

	// Help holds the usage text for CommandHelp.
	Help string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses args (without argv[0]) into an Invocation.
// Environment variables are not consulted.
func ParseInvocation(args []string) (Invocation, error) {
	var (
		inv  Invocation
		help bytes.Buffer
	)
	root := newRootCommand(&inv)
	root.SetArgs(args)
	root.SetOut(&help)
	root.SetErr(&help)
	if err := root.Execute(); err != nil {
		var invErr *InvocationError
		if errors.As(err, &invErr) {
			return Invocation{}, err
		}
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if inv.Command == "" {
		return Invocation{Command: CommandHelp, Help: help.String()}, nil
	}
	return resolve(inv)
}

func resolve(inv Invocation) (Invocation, error) {
	siteDir := filepath.Clean(inv.SiteDir)
	if strings.TrimSpace(inv.SiteDir) == "" {
		return Invocation{}, invalidInvocationf("--site is required")
	}
	if !filepath.IsAbs(siteDir) {
		return Invocation{}, invalidInvocationf("--site must be an absolute path (got %q)", inv.SiteDir)
	}
	inv.SiteDir = siteDir

	var err error
	if inv.ConfigPath == "" {
		inv.ConfigPath = config.DefaultFilename
	}
	if inv.ConfigPath, err = resolveUnderSite(siteDir, inv.ConfigPath); err != nil {
		return Invocation{}, err
	}
	for _, p := range []*string{&inv.OutputDir, &inv.TracePath, &inv.MetricsPath} {
		if *p == "" {
			continue
		}
		if *p, err = resolveUnderSite(siteDir, *p); err != nil {
			return Invocation{}, err
		}
	}
	switch inv.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return Invocation{}, invalidInvocationf("invalid --log-level %q (expected debug|info|warn|error)", inv.LogLevel)
	}
	switch inv.LogFormat {
	case "", "text", "json":
	default:
		return Invocation{}, invalidInvocationf("invalid --log-format %q (expected text|json)", inv.LogFormat)
	}
	return inv, nil
}

func resolveUnderSite(siteDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	return filepath.Clean(filepath.Join(siteDir, clean)), nil
}

// ExitCode extracts a semantic exit code from err. Errors that are not
// invocation errors map to ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
