package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    string            `yaml:"log_level" validate:"oneof=debug info warn error"`
	Input       InputConfig       `yaml:"input"`
	Network     NetworkConfig     `yaml:"network"`
	Normalize   NormalizeConfig   `yaml:"normalize"`
	Build       BuildConfig       `yaml:"build"`
	Consolidate ConsolidateConfig `yaml:"consolidate"`
	Simplify    SimplifyConfig    `yaml:"simplify"`
	Project     ProjectConfig     `yaml:"project"`
	Output      OutputConfig      `yaml:"output"`
	Server      ServerConfig      `yaml:"server"`
}

type InputConfig struct {
	// .osm.pbf, .pbf or .osm
	Path string `yaml:"path"`
}

type NetworkConfig struct {
	Type              string `yaml:"type" validate:"oneof=drive all none"`
	LargestComponent  bool   `yaml:"largest_component"`
	StronglyConnected bool   `yaml:"strongly_connected"`
}

type NormalizeConfig struct {
	SplitTags []string `yaml:"split_tags"`
}

type BuildConfig struct {
	ExpandSegments bool `yaml:"expand_segments"`
	Multi          bool `yaml:"multi"`
}

type ConsolidateConfig struct {
	Enabled               bool    `yaml:"enabled"`
	Tolerance             float64 `yaml:"tolerance" validate:"gte=0"`
	Placement             string  `yaml:"placement" validate:"oneof=centroid representative"`
	RequireConnectingEdge bool    `yaml:"require_connecting_edge"`
}

type SimplifyConfig struct {
	Enabled         bool     `yaml:"enabled"`
	EdgeAttrsDiffer []string `yaml:"edge_attrs_differ"`
}

type ProjectConfig struct {
	Enabled bool `yaml:"enabled"`
	// "auto", "utm" or an EPSG code such as "EPSG:3857"
	To string `yaml:"to" validate:"required_if=Enabled true"`
}

type OutputConfig struct {
	GraphML  string `yaml:"graphml"`
	Snapshot string `yaml:"snapshot"`
	// badger directory of the h3 edge index, skipped when empty
	KVDir  string `yaml:"kv_dir"`
	Speeds bool   `yaml:"speeds"`
}

type ServerConfig struct {
	Addr              string   `yaml:"addr" validate:"required"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	ReadTimeoutSec    int      `yaml:"read_timeout_sec" validate:"gte=0"`
	WriteTimeoutSec   int      `yaml:"write_timeout_sec" validate:"gte=0"`
	MaxNearestResults int      `yaml:"max_nearest_results" validate:"gt=0"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Network:  NetworkConfig{Type: "drive"},
		Normalize: NormalizeConfig{
			SplitTags: []string{"barrier", "ford"},
		},
		Build: BuildConfig{ExpandSegments: true, Multi: true},
		Consolidate: ConsolidateConfig{
			Tolerance:             10,
			Placement:             "centroid",
			RequireConnectingEdge: true,
		},
		Simplify: SimplifyConfig{Enabled: true},
		Project:  ProjectConfig{To: "auto"},
		Server: ServerConfig{
			Addr:              ":5000",
			AllowedOrigins:    []string{"https://*", "http://*"},
			ReadTimeoutSec:    30,
			WriteTimeoutSec:   60,
			MaxNearestResults: 50,
		},
	}
}

// Load reads a yaml file over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Consolidate.Enabled && c.Consolidate.Tolerance <= 0 {
		return fmt.Errorf("invalid config: consolidate.tolerance must be positive, got %v", c.Consolidate.Tolerance)
	}
	return nil
}
