package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// policyFile is the on-disk shape of WORKFLOW_POLICY_FILE. Zero values keep
// the environment-derived setting.
type policyFile struct {
	Timezone            string `yaml:"timezone"`
	EscalationThreshold int    `yaml:"escalationThreshold"`
	Backoff             struct {
		Policy string  `yaml:"policy"`
		Base   string  `yaml:"base"`
		Factor float64 `yaml:"factor"`
		Max    string  `yaml:"max"`
	} `yaml:"backoff"`
}

func applyPolicyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workflow policy file: %w", err)
	}
	return applyPolicy(cfg, data)
}

func applyPolicy(cfg *Config, data []byte) error {
	var p policyFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse workflow policy file: %w", err)
	}

	if p.Timezone != "" {
		loc, err := timeLocation(p.Timezone)
		if err != nil {
			return err
		}
		cfg.BusinessLocation = loc
	}
	if p.EscalationThreshold != 0 {
		cfg.EscalationThreshold = p.EscalationThreshold
	}
	if p.Backoff.Policy != "" {
		cfg.BackoffPolicy = strings.ToLower(p.Backoff.Policy)
	}
	if p.Backoff.Base != "" {
		d := mustDuration(p.Backoff.Base)
		if d <= 0 {
			return fmt.Errorf("workflow policy: invalid backoff.base %q", p.Backoff.Base)
		}
		cfg.BackoffBase = d
	}
	if p.Backoff.Factor != 0 {
		cfg.BackoffFactor = p.Backoff.Factor
	}
	if p.Backoff.Max != "" {
		d := mustDuration(p.Backoff.Max)
		if d <= 0 {
			return fmt.Errorf("workflow policy: invalid backoff.max %q", p.Backoff.Max)
		}
		cfg.BackoffMax = d
	}
	return nil
}

func timeLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("workflow policy: timezone %q: %w", name, err)
	}
	return loc, nil
}
