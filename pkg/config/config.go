package config

import (
	"fmt"
	"strings"

	"github.com/ferrite-lang/ferrc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatCComments Feature = iota
	FeatCharLiterals
	FeatSyscalls
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnUnreachableCode
	WarnUnusedValue
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features        map[Feature]Info
	Warnings        map[Warning]Info
	FeatureMap      map[string]Feature
	WarningMap      map[string]Warning
	Target          string
	TargetArch      string
	HostTarget      string
	WordSize        int
	MaxRegisterArgs int
	Verbose         bool
}

// SupportedTarget is the only ABI the assembly backend emits.
const SupportedTarget = "amd64_sysv"

func NewConfig() *Config {
	cfg := &Config{
		Features:        make(map[Feature]Info),
		Warnings:        make(map[Warning]Info),
		FeatureMap:      make(map[string]Feature),
		WarningMap:      make(map[string]Warning),
		Target:          SupportedTarget,
		TargetArch:      "amd64",
		WordSize:        8,
		MaxRegisterArgs: 6,
	}

	features := map[Feature]Info{
		FeatCComments:    {"c-comments", true, "Recognize C-style '/* */' block comments."},
		FeatCharLiterals: {"char-literals", true, "Recognize 'c' character literals."},
		FeatSyscalls:     {"syscalls", true, "Lower calls to undeclared 'sys_*' names into system calls."},
	}

	warnings := map[Warning]Info{
		WarnShadow:          {"shadow", true, "Warn when a 'let' hides a binding from an enclosing block."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements following a 'return'."},
		WarnUnusedValue:     {"unused-value", false, "Warn when an expression statement discards a computed value."},
		WarnExtra:           {"extra", true, "Warn when a function with a return type can end without a 'return'."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget selects the target ABI. An explicit target must be the supported
// one; without one the output is still amd64_sysv and the host's own target
// is only recorded, so cross-compiling from another host needs no flag.
func (c *Config) SetTarget(goos, goarch, target string) error {
	c.HostTarget = libqbe.DefaultTarget(goos, goarch)
	if target == "" {
		target = SupportedTarget
	}
	if target != SupportedTarget {
		return fmt.Errorf("unsupported target '%s': only '%s' assembly is emitted", target, SupportedTarget)
	}
	c.Target, c.TargetArch = target, "amd64"
	return nil
}

// CrossCompiling reports whether the emitted assembly will not run natively.
func (c *Config) CrossCompiling() bool {
	return c.HostTarget != "" && c.HostTarget != c.Target
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// WarningName returns the -W spelling of wt.
func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// ApplyFlag handles a single -W<name>, -Wno-<name>, -F<name> or -Fno-<name>.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// SetupFlagGroups registers -W/-F toggles for every warning and feature on fs.
// The returned entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	warningFlags = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
	}
	featureFlags = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable language features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies parsed toggles back into the configuration.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
