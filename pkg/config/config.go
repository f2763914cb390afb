package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrCycle is returned when the declared topology contains a
	// dependency cycle.
	ErrCycle = errors.New("dependency cycle")

	// ErrUnknownParent is returned when a subsystem declares a parent
	// that is not defined in the topology.
	ErrUnknownParent = errors.New("unknown parent")

	// ErrDuplicateName is returned when two subsystems share a name.
	ErrDuplicateName = errors.New("duplicate subsystem name")
)

// Config is a declarative subsystem topology.
type Config struct {
	MaxSubsystems uint32            `yaml:"max_subsystems"`
	LogLevel      string            `yaml:"log_level"`
	Subsystems    []SubsystemConfig `yaml:"subsystems"`
}

// SubsystemConfig declares one subsystem and its parents by name.
type SubsystemConfig struct {
	Name      string   `yaml:"name"`
	Parents   []string `yaml:"parents"`
	AutoStart bool     `yaml:"autostart"`
}

// Load reads and validates a topology file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML topology.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the topology: unique non-empty names, known parents,
// and no dependency cycles.
func (c *Config) Validate() error {
	byName := make(map[string]*SubsystemConfig, len(c.Subsystems))
	for i := range c.Subsystems {
		sc := &c.Subsystems[i]
		if sc.Name == "" {
			return fmt.Errorf("subsystem %d: name is required", i)
		}
		if _, dup := byName[sc.Name]; dup {
			return fmt.Errorf("subsystem %q: %w", sc.Name, ErrDuplicateName)
		}
		byName[sc.Name] = sc
	}

	for _, sc := range c.Subsystems {
		for _, p := range sc.Parents {
			if _, ok := byName[p]; !ok {
				return fmt.Errorf("subsystem %q: %w %q", sc.Name, ErrUnknownParent, p)
			}
		}
	}

	// Three-color DFS over the parent relation.
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(byName))
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return fmt.Errorf("%w through %q", ErrCycle, name)
		case black:
			return nil
		}
		color[name] = gray
		for _, p := range byName[name].Parents {
			if err := visit(p); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for _, sc := range c.Subsystems {
		if err := visit(sc.Name); err != nil {
			return err
		}
	}
	return nil
}
