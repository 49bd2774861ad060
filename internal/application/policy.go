package application

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/batching-service/internal/domain"
)

// Policy holds the tunable floor policy
type Policy struct {
	Allocation domain.AllocationPolicy `yaml:"allocation"`
	SLA        SLAConfig               `yaml:"sla"`
}

// SLAConfig configures the SLA monitor
type SLAConfig struct {
	// CheckInterval is how often the monitor scans open orders
	CheckInterval    time.Duration `yaml:"checkInterval"`
	domain.SLAPolicy `yaml:",inline"`
}

// DefaultPolicy returns the standard floor policy
func DefaultPolicy() Policy {
	return Policy{
		Allocation: domain.DefaultAllocationPolicy(),
		SLA: SLAConfig{
			CheckInterval: time.Minute,
			SLAPolicy:     domain.DefaultSLAPolicy(),
		},
	}
}

// Validate checks the policy
func (p Policy) Validate() error {
	if err := p.Allocation.Validate(); err != nil {
		return err
	}
	if p.SLA.CheckInterval <= 0 {
		return fmt.Errorf("sla check interval must be positive, got %s", p.SLA.CheckInterval)
	}
	if p.SLA.Threshold < 0 || p.SLA.Cooldown < 0 {
		return fmt.Errorf("sla threshold and cooldown must not be negative")
	}
	return nil
}

// LoadPolicyFile overlays the YAML file at path onto base. Keys missing from
// the file keep their base values.
//
//	allocation:
//	  highTierMin: 40
//	  regularTierMin: 30
//	  headroom: 0.8
//	sla:
//	  checkInterval: 60s
//	  threshold: 30m
//	  cooldown: 10m
func LoadPolicyFile(path string, base Policy) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read policy file: %w", err)
	}

	policy := base
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return base, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return base, fmt.Errorf("invalid policy file: %w", err)
	}
	return policy, nil
}
