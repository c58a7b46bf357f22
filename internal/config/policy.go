package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/guardrail"
	"github.com/aescanero/dago-node-assistant/internal/router"
	"gopkg.in/yaml.v3"
)

// Policy is the routing and guardrail policy loaded from POLICY_FILE
type Policy struct {
	// Keywords replaces the fallback vocabulary of each listed capability
	Keywords map[capability.Tag][]string

	// Rules are CEL fast-path routing rules
	Rules []router.Rule

	// Guardrail extends the default read-only policy
	Guardrail guardrail.Policy
}

type policyFile struct {
	Classifier struct {
		Keywords map[string][]string `yaml:"keywords"`
		Rules    []struct {
			Condition    string   `yaml:"condition"`
			Capabilities []string `yaml:"capabilities"`
			Rationale    string   `yaml:"rationale"`
		} `yaml:"rules"`
	} `yaml:"classifier"`
	Guardrail guardrail.Policy `yaml:"guardrail"`
}

// DefaultPolicy returns the built-in keywords, no rules and the default guardrail
func DefaultPolicy() *Policy {
	return &Policy{
		Keywords:  router.DefaultKeywords(),
		Guardrail: guardrail.DefaultPolicy(),
	}
}

// LoadPolicy reads the policy file at path. An empty path yields the defaults.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes a YAML policy. Unknown fields and capability names
// are errors: the capability set is closed.
func ParsePolicy(data []byte) (*Policy, error) {
	var raw policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode policy: %w", err)
	}

	p := DefaultPolicy()

	for name, words := range raw.Classifier.Keywords {
		tag, err := capability.ParseTag(name)
		if err != nil {
			return nil, fmt.Errorf("keywords: %w", err)
		}
		if tag == capability.None {
			return nil, fmt.Errorf("keywords: NONE cannot have keywords")
		}
		p.Keywords[tag] = words
	}

	for i, r := range raw.Classifier.Rules {
		tags := make([]capability.Tag, 0, len(r.Capabilities))
		for _, name := range r.Capabilities {
			tag, err := capability.ParseTag(name)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			tags = append(tags, tag)
		}
		p.Rules = append(p.Rules, router.Rule{
			Condition:    r.Condition,
			Capabilities: tags,
			Rationale:    r.Rationale,
		})
	}

	p.Guardrail = guardrail.DefaultPolicy().Merge(raw.Guardrail)
	return p, nil
}

// RouterConfig combines the environment tuning with the policy
func (c *Config) RouterConfig(p *Policy) router.Config {
	return router.Config{
		Threshold:          c.ClassifierThreshold,
		FallbackConfidence: c.FallbackConfidence,
		Keywords:           p.Keywords,
		Rules:              p.Rules,
		RulesEnabled:       c.CELEnabled,
	}
}
