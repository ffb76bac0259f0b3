// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/knotlink/internal/config"
	"github.com/ManuGH/knotlink/internal/version"
)

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage()
		return 0
	}

	switch args[0] {
	case "init":
		return runConfigInit(args[1:], os.Stdout, os.Stderr)
	case "validate":
		return runConfigValidate(args[1:], os.Stdout, os.Stderr)
	case "dump":
		return runConfigDump(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  knotlink config init [--file|-f config.yaml] [--force]")
	fmt.Fprintln(os.Stderr, "  knotlink config validate [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  knotlink config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func configFlags(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	return fs, &file
}

// runConfigInit writes a starter file. The write is atomic so a crash never
// leaves a truncated config behind.
func runConfigInit(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("knotlink config init", stderr)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path := resolveConfigPath(*file)
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(stderr, "Error: %s already exists (use --force to overwrite)\n", path)
		return 1
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	raw, err := starterConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to render config: %v\n", err)
		return 1
	}
	if err := renameio.WriteFile(path, raw, 0o600); err != nil {
		fmt.Fprintf(stderr, "Failed to write %s: %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return 0
}

func starterConfig() ([]byte, error) {
	cfg := config.Defaults()
	cfg.Knot.ClientID = "your-client-id"
	cfg.Knot.ClientSecret = config.PlaceholderSecret

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	header := "# knotlink configuration. Environment variables (KNOT_*) override these values.\n" +
		"# Prefer KNOT_CLIENT_SECRET over storing the secret in this file.\n"
	return append([]byte(header), raw...), nil
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("knotlink config validate", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path := resolveConfigPath(*file)
	if path == "" {
		fmt.Fprintln(stderr, "Error: --file is required (or set KNOT_CONFIG)")
		return 2
	}

	if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s is valid\n", path)
	return 0
}

// runConfigDump prints the effective configuration (defaults + file + env)
// with secrets redacted.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("knotlink config dump", stderr)
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := resolveConfigPath(*file)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}
	masked := config.MaskSecrets(cfg)

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(masked); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(masked); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return 2
	}
}
