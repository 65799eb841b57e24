// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/playwatch/internal/config"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return configValidate(args[1:], stdout, stderr)
	case "dump":
		return configDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  playwatchd config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  playwatchd config dump [--file|-f config.yaml]")
}

func parseFileFlag(name string, args []string, stderr io.Writer) (string, bool) {
	fs := flag.NewFlagSet("playwatchd config "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	return resolveConfigPath(file), true
}

func configValidate(args []string, stdout, stderr io.Writer) int {
	path, ok := parseFileFlag("validate", args, stderr)
	if !ok {
		return 2
	}
	if path == "" {
		fmt.Fprintf(stderr, "Error: --file is required (or set $%s)\n", config.EnvConfigPath)
		return 2
	}

	if _, err := config.NewLoader(path).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "✓ %s is valid\n", path)
	return 0
}

// configDump prints the effective configuration (defaults, file and
// environment) with secrets redacted. The file is optional.
func configDump(args []string, stdout, stderr io.Writer) int {
	path, ok := parseFileFlag("dump", args, stderr)
	if !ok {
		return 2
	}

	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	redactSecrets(&cfg)

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
		return 1
	}
	_ = enc.Close()
	return 0
}

func redactSecrets(cfg *config.AppConfig) {
	if strings.TrimSpace(cfg.Preferences.RedisPassword) != "" {
		cfg.Preferences.RedisPassword = "***"
	}
	if strings.TrimSpace(cfg.ObjectStore.SecretAccessKey) != "" {
		cfg.ObjectStore.SecretAccessKey = "***"
	}
}
