package coverage

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// DefaultGridNodes is the density grid resolution per axis used when a
// configuration gives neither a grid size nor values.
const DefaultGridNodes = 51

// Config describes one partition run.
type Config struct {
	Region       []orb.Point   `yaml:"region"`
	Density      DensityConfig `yaml:"density,omitempty"`
	Regions      int           `yaml:"regions"`
	DesiredAreas []float64     `yaml:"desiredAreas,omitempty"`
	Centers      []orb.Point   `yaml:"centers,omitempty"`
	Weights      []float64     `yaml:"weights,omitempty"`
	Parameters   Parameters    `yaml:"parameters"`
	Trace        TraceConfig   `yaml:"trace,omitempty"`
	MQTT         MQTTConfig    `yaml:"mqtt,omitempty"`
}

// DensityConfig is the sampled density. Values are indexed [i*ny+j] with i
// along x. Omitted values mean a uniform density.
type DensityConfig struct {
	NX     int       `yaml:"nx,omitempty"`
	NY     int       `yaml:"ny,omitempty"`
	Values []float64 `yaml:"values,omitempty"`
}

// TraceConfig names the files the textual trace is written to.
type TraceConfig struct {
	Centers   string `yaml:"centers,omitempty"`
	Partition string `yaml:"partition,omitempty"`
}

// MQTTConfig holds the settings of the snapshot publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled,omitempty"`
	Broker      string `yaml:"broker,omitempty"`
	ClientID    string `yaml:"clientId,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topicPrefix,omitempty"`
	QoS         byte   `yaml:"qos,omitempty"`
	Retain      bool   `yaml:"retain,omitempty"`
}

// LoadConfig loads a run configuration from a YAML file. Parameters not
// present in the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Config{Parameters: DefaultParameters()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if len(config.Region) < 3 {
		return nil, fmt.Errorf("%w: region needs at least 3 vertices, got %d", ErrConfiguration, len(config.Region))
	}
	if config.Regions < 0 {
		return nil, fmt.Errorf("%w: regions must not be negative, got %d", ErrConfiguration, config.Regions)
	}
	if err := config.Parameters.Validate(); err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// NewDensity builds the density field the configuration describes.
func (c *Config) NewDensity() (*DensityField, error) {
	region, err := NewPolygon(c.Region)
	if err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}

	nx, ny := c.Density.NX, c.Density.NY
	if len(c.Density.Values) == 0 {
		if nx == 0 && ny == 0 {
			nx, ny = DefaultGridNodes, DefaultGridNodes
		}
		return UniformDensity(region, nx, ny, c.Parameters.RobustnessTolerance)
	}
	return NewDensityField(region, nx, ny, c.Density.Values, c.Parameters.RobustnessTolerance)
}

// NewPartition builds and seeds the partition the configuration describes.
func (c *Config) NewPartition() (*Partition, error) {
	density, err := c.NewDensity()
	if err != nil {
		return nil, err
	}

	p, err := NewPartition(c.Regions, density, c.DesiredAreas, c.Parameters)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(c.Centers, c.Weights); err != nil {
		return nil, err
	}
	return p, nil
}
