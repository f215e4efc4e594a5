// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the analyzer configuration from the scan root.
//
// Configuration lives in a single optional file, .impactgate.yaml, at the
// root of the tree being analyzed. A missing file means defaults: the
// watched targets of the Layer SDK harness and the standard ignore set.
// A present but malformed file is an error; silently falling back to
// defaults would change which tests CI runs.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/layerai/impactgate/services/analyzer/ast"
	"github.com/layerai/impactgate/services/analyzer/impact"
	"github.com/layerai/impactgate/services/analyzer/scan"
)

// FileName is the configuration file looked up at the scan root.
const FileName = ".impactgate.yaml"

// MaxWorkers bounds the configurable parse worker pool.
const MaxWorkers = 256

// configValidate is the validator instance for configuration structs.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
}

// Config is the analyzer configuration.
//
// Zero values mean "use the built-in default": an empty Targets list is
// replaced by the default watched targets, zero Workers by the scanner's
// default pool size, and so on. This keeps a partial .impactgate.yaml
// that only overrides one knob valid.
type Config struct {
	// Targets are the watched targets. Empty means the defaults.
	Targets []impact.Target `yaml:"targets" json:"targets"`

	// IgnoreDirs replaces the default set of directory names skipped
	// during the scan. Empty means the defaults.
	IgnoreDirs []string `yaml:"ignore_dirs" json:"ignore_dirs,omitempty"`

	// IgnorePatterns are additional relative-path patterns to exclude.
	IgnorePatterns []string `yaml:"ignore_patterns" json:"ignore_patterns,omitempty"`

	// Languages narrows parsing to the named languages. Empty means all
	// built-in parsers.
	Languages []string `yaml:"languages" json:"languages,omitempty" validate:"omitempty,dive,oneof=python go"`

	// Workers bounds the parse worker pool. Zero means the default.
	Workers int `yaml:"workers" json:"workers,omitempty" validate:"gte=0,lte=256"`

	// MaxFiles caps the number of files per scan. Zero means the default.
	MaxFiles int `yaml:"max_files" json:"max_files,omitempty" validate:"gte=0"`

	// StrictPatterns disables ancestor subsumption in pattern output.
	StrictPatterns bool `yaml:"strict_patterns" json:"strict_patterns,omitempty"`
}

// Default returns the built-in configuration: the Layer SDK harness
// targets, default ignore set, all languages.
func Default() *Config {
	return &Config{
		Targets: impact.DefaultTargets(),
	}
}

// Load reads the configuration from the scan root.
//
// Description:
//
//	Looks for .impactgate.yaml directly under root. A missing file yields
//	the defaults; an unreadable or invalid file is an error. The returned
//	configuration is always validated and normalized.
//
// Inputs:
//
//	root - Path to the scan root directory.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Non-nil when the file exists but cannot be used.
func Load(root string) (*Config, error) {
	configPath := filepath.Join(root, FileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile reads the configuration from an explicit path.
//
// Description:
//
//	Unlike Load, the file must exist: an explicit --config flag pointing
//	at nothing is a misconfiguration, not a request for defaults.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - ErrConfigNotFound, ErrInvalidConfig, or a read error.
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, configPath, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// normalize fills defaulted fields in place.
func (c *Config) normalize() {
	if len(c.Targets) == 0 {
		c.Targets = impact.DefaultTargets()
	}
	for i := range c.Targets {
		if c.Targets[i].Name == "" && len(c.Targets[i].Roots) > 0 {
			c.Targets[i].Name = c.Targets[i].Roots[0]
		}
	}
}

// Validate checks the configuration.
//
// Description:
//
//	Runs the struct-level validator (ranges, language names) and the
//	semantic target checks: every target needs a name and at least one
//	root, and every root must be a clean relative path that cannot
//	escape the scan root or break the output encoding.
//
// Outputs:
//
//	error - Non-nil when the configuration is unusable, wrapping
//	        ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no targets", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for _, target := range c.Targets {
		if target.Name == "" {
			return fmt.Errorf("%w: target with empty name", ErrInvalidConfig)
		}
		if _, dup := seen[target.Name]; dup {
			return fmt.Errorf("%w: duplicate target %q", ErrInvalidConfig, target.Name)
		}
		seen[target.Name] = struct{}{}

		if len(target.Roots) == 0 {
			return fmt.Errorf("%w: target %q has no roots", ErrInvalidConfig, target.Name)
		}
		for _, root := range target.Roots {
			if err := checkRoot(root); err != nil {
				return fmt.Errorf("%w: target %q: %v", ErrInvalidConfig, target.Name, err)
			}
		}
	}
	return nil
}

// checkRoot rejects root paths that escape the scan root or would break
// the serialized output line.
func checkRoot(root string) error {
	if root == "" {
		return fmt.Errorf("empty root path")
	}
	if strings.ContainsRune(root, impact.Delimiter) {
		return fmt.Errorf("root %q contains %q", root, impact.Delimiter)
	}
	if path.IsAbs(root) || filepath.IsAbs(root) {
		return fmt.Errorf("root %q is absolute, must be relative to the scan root", root)
	}
	if strings.Contains(root, "\\") {
		return fmt.Errorf("root %q must use forward slashes", root)
	}
	cleaned := path.Clean(root)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("root %q escapes the scan root", root)
	}
	return nil
}

// ScannerOptions converts the configuration into scanner options.
//
// Only non-default fields produce options, so the scanner's own defaults
// stay in charge elsewhere.
func (c *Config) ScannerOptions() []scan.ScannerOption {
	var opts []scan.ScannerOption

	if len(c.Languages) > 0 {
		opts = append(opts, scan.WithRegistry(c.registry()))
	}
	if c.Workers > 0 {
		opts = append(opts, scan.WithWorkers(c.Workers))
	}
	if c.MaxFiles > 0 {
		opts = append(opts, scan.WithMaxFiles(c.MaxFiles))
	}
	if len(c.IgnoreDirs) > 0 {
		opts = append(opts, scan.WithIgnoreDirs(c.IgnoreDirs))
	}
	if len(c.IgnorePatterns) > 0 {
		opts = append(opts, scan.WithIgnorePatterns(c.IgnorePatterns))
	}
	return opts
}

// AnalyzerOptions converts the configuration into analyzer options.
func (c *Config) AnalyzerOptions() []impact.AnalyzerOption {
	var opts []impact.AnalyzerOption
	if c.StrictPatterns {
		opts = append(opts, impact.WithStrictPatterns(true))
	}
	return opts
}

// registry builds a parser registry narrowed to the configured languages.
func (c *Config) registry() *ast.ParserRegistry {
	r := ast.NewParserRegistry()
	for _, lang := range c.Languages {
		switch lang {
		case "python":
			r.Register(ast.NewPythonParser())
		case "go":
			r.Register(ast.NewGoParser())
		}
	}
	return r
}
