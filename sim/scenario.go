package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default run parameters matching the reference deployment.
const (
	DefaultN             = 11
	DefaultSlotNs        = 1200
	DefaultHelloInterval = 3
	DefaultRuntimeNs     = 10_000_000
)

// DefaultRate is the network-wide arrival rate for n, 5 Gbps per transmitter.
func DefaultRate(n int) float64 {
	return 0.003333333333 * float64(n) * float64(n)
}

// LinkFailureSpec is one injected failure: at Time, the outgoing link of
// stage-1 AWGR on the given port goes dark.
type LinkFailureSpec struct {
	Time int64 `yaml:"time_ns"`
	AWGR int   `yaml:"awgr"`
	Port int   `yaml:"port"`
}

// Scenario is the YAML-loadable run description. Zero-valued fields take the
// built-in defaults.
type Scenario struct {
	N             int     `yaml:"n"`
	Rate          float64 `yaml:"rate"`
	SlotDuration  int64   `yaml:"slot_duration_ns"`
	HelloInterval int64   `yaml:"hello_interval"`
	Runtime       int64   `yaml:"runtime_ns"`
	Seed          int64   `yaml:"seed"`

	// ReroutePolicy is "resiconnect" (default) or "nnt".
	ReroutePolicy     string `yaml:"reroute_policy"`
	LegacyHelloDemote bool   `yaml:"legacy_hello_demote"`

	LinkFailures []LinkFailureSpec `yaml:"link_failures"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects unusable parameter combinations.
func (s *Scenario) Validate() error {
	if s.N < 0 || s.N == 1 {
		return fmt.Errorf("scenario: n must be at least 2, got %d", s.N)
	}
	if s.Rate < 0 {
		return fmt.Errorf("scenario: rate must be non-negative, got %g", s.Rate)
	}
	if s.SlotDuration < 0 || s.Runtime < 0 || s.HelloInterval < 0 {
		return fmt.Errorf("scenario: durations must be non-negative")
	}
	switch s.ReroutePolicy {
	case "", "resiconnect", "nnt":
	default:
		return fmt.Errorf("scenario: unknown reroute policy %q", s.ReroutePolicy)
	}
	n := s.N
	if n == 0 {
		n = DefaultN
	}
	for _, lf := range s.LinkFailures {
		if lf.AWGR < 0 || lf.AWGR >= n || lf.Port < 0 || lf.Port >= n {
			return fmt.Errorf("scenario: link failure (%d, %d) out of range for n=%d", lf.AWGR, lf.Port, n)
		}
	}
	return nil
}

// Config resolves the scenario into a network configuration with defaults
// applied.
func (s *Scenario) Config() Config {
	cfg := Config{
		N:                 s.N,
		Rate:              s.Rate,
		Slot:              s.SlotDuration,
		HelloInterval:     s.HelloInterval,
		Runtime:           s.Runtime,
		Seed:              s.Seed,
		LegacyHelloDemote: s.LegacyHelloDemote,
		LinkFailures:      s.LinkFailures,
	}
	if cfg.N == 0 {
		cfg.N = DefaultN
	}
	if cfg.Slot == 0 {
		cfg.Slot = DefaultSlotNs
	}
	if cfg.HelloInterval == 0 {
		cfg.HelloInterval = DefaultHelloInterval
	}
	if cfg.Runtime == 0 {
		cfg.Runtime = DefaultRuntimeNs
	}
	if cfg.Rate == 0 {
		cfg.Rate = DefaultRate(cfg.N)
	}
	if s.ReroutePolicy == "nnt" {
		cfg.RerouteFlag = RerouteNNT
	}
	return cfg
}
