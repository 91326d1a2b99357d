package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/zen-systems/unigate/pkg/intent"
	"github.com/zen-systems/unigate/pkg/schema"
)

// PlatformConfig is one declarative platform entry from the config
// file. Validation resolves the free-form strings into closed enums so
// a bad profile fails at load time, not at request time.
type PlatformConfig struct {
	ID        string   `yaml:"id"`
	Kind      string   `yaml:"kind"` // dify, ragflow, n8n, langflow, mock
	Endpoint  string   `yaml:"endpoint"`
	APIKey    string   `yaml:"api_key,omitempty"`
	Strengths []string `yaml:"strengths"`
	Latency   string   `yaml:"latency_class"`
	Cost      string   `yaml:"cost_class"`
	Tier      int      `yaml:"enterprise_tier"`
	Webhook   string   `yaml:"webhook,omitempty"` // n8n workflow entry point
	FlowID    string   `yaml:"flow_id,omitempty"` // langflow flow
}

// platformKinds is the closed set of supported adapter kinds.
var platformKinds = map[string]bool{
	"dify":     true,
	"ragflow":  true,
	"n8n":      true,
	"langflow": true,
	"mock":     true,
}

// Validate checks one platform entry.
func (p *PlatformConfig) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("platform id is required")
	}
	if !platformKinds[p.Kind] {
		return fmt.Errorf("platform %s: unknown kind %q", p.ID, p.Kind)
	}
	if p.Kind != "mock" && p.Endpoint == "" {
		return fmt.Errorf("platform %s: endpoint is required", p.ID)
	}
	if p.Kind == "langflow" && p.FlowID == "" {
		return fmt.Errorf("platform %s: flow_id is required", p.ID)
	}
	if _, err := schema.ParseLatencyClass(p.Latency); err != nil {
		return fmt.Errorf("platform %s: %w", p.ID, err)
	}
	if _, err := schema.ParseCostClass(p.Cost); err != nil {
		return fmt.Errorf("platform %s: %w", p.ID, err)
	}
	if p.Tier < 0 || p.Tier > 3 {
		return fmt.Errorf("platform %s: enterprise_tier %d out of range 0-3", p.ID, p.Tier)
	}
	for _, tag := range p.Strengths {
		if !intent.IsKnownTag(tag) {
			return fmt.Errorf("platform %s: unknown capability tag %q", p.ID, tag)
		}
	}
	return nil
}

// Profile converts a validated entry into an immutable PlatformProfile.
func (p *PlatformConfig) Profile() *schema.PlatformProfile {
	strengths := make([]string, len(p.Strengths))
	copy(strengths, p.Strengths)
	sort.Strings(strengths)

	return &schema.PlatformProfile{
		ID:        p.ID,
		Strengths: strengths,
		Latency:   schema.LatencyClass(p.Latency),
		Cost:      schema.CostClass(p.Cost),
		Tier:      p.Tier,
	}
}

// ResolvedAPIKey returns the API key, preferring the environment
// variable UNIGATE_<ID>_API_KEY over the file value so keys stay out
// of config files.
func (p *PlatformConfig) ResolvedAPIKey() string {
	envVar := fmt.Sprintf("UNIGATE_%s_API_KEY", strings.ToUpper(strings.ReplaceAll(p.ID, "-", "_")))
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return p.APIKey
}
