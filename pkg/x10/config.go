// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the programmatic construction path for library callers
// (§3, §10.2). PortName and HouseCode are the only fields the distilled
// spec names; the rest are ambient knobs layered on top.
type Configuration struct {
	PortName  string `yaml:"port_name"`
	HouseCode string `yaml:"house_code"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	AckTimeoutMs int `yaml:"ack_timeout_ms"`

	StrictChecksum                  bool `yaml:"strict_checksum"`
	ZeroChecksumDisconnectThreshold int  `yaml:"zero_checksum_disconnect_threshold"`
}

// DefaultConfiguration returns a Configuration with every ambient knob set
// to its documented default (§10.2); PortName and HouseCode are left blank
// for the caller to fill in.
func DefaultConfiguration() Configuration {
	return Configuration{
		LogLevel:                        "info",
		LogFormat:                       "console",
		AckTimeoutMs:                    int(ackTimeout / time.Millisecond),
		StrictChecksum:                  false,
		ZeroChecksumDisconnectThreshold: zeroChecksumDefaultThreshold,
	}
}

// LoadConfig reads a YAML configuration file at path, per §10.2. It is a
// convenience for process-level callers; it is not a CLI entry point and
// performs no flag parsing.
func LoadConfig(path string) (Configuration, error) {
	cfg := DefaultConfiguration()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("x10: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("x10: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// AckTimeout returns the configured ACK timeout, falling back to the
// protocol default (§4.3) when unset.
func (c Configuration) AckTimeout() time.Duration {
	if c.AckTimeoutMs <= 0 {
		return ackTimeout
	}
	return time.Duration(c.AckTimeoutMs) * time.Millisecond
}

// Houses parses HouseCode ("A,C") into its constituent HouseCode values.
// Whitespace is not tolerated, matching the reference behavior (§6).
func (c Configuration) Houses() ([]HouseCode, error) {
	if c.HouseCode == "" {
		return nil, nil
	}
	parts := strings.Split(c.HouseCode, ",")
	houses := make([]HouseCode, 0, len(parts))
	for _, p := range parts {
		h, err := ParseHouseCode(p)
		if err != nil {
			return nil, fmt.Errorf("x10: house_code %q: %w", c.HouseCode, err)
		}
		houses = append(houses, h)
	}
	return houses, nil
}

// IsUSB reports whether PortName selects the USB backend (§6).
func (c Configuration) IsUSB() bool {
	return c.PortName == "USB"
}

// Validate performs declarative validation of cfg and aggregates every
// problem found, rather than failing on the first one, matching the
// reference config package's validation style.
func (c Configuration) Validate() error {
	var problems []string

	if c.PortName == "" {
		problems = append(problems, "port_name must not be empty")
	}
	if _, err := c.Houses(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.AckTimeoutMs < 0 {
		problems = append(problems, "ack_timeout_ms must not be negative")
	}
	if c.ZeroChecksumDisconnectThreshold < 0 {
		problems = append(problems, "zero_checksum_disconnect_threshold must not be negative")
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q is not one of console, json", c.LogFormat))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("x10: invalid configuration: %s", strings.Join(problems, "; "))
}
