package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTasks       = "grid_stack,particle_pour"
	DefaultDifficulty  = "easy"
	DefaultSteps       = 600
	DefaultWarmupSteps = 120
	DefaultDt          = 1.0 / 240.0
	DefaultDevice      = "cuda"
	DefaultOutputDir   = "benchmark/results"

	// RunIDLayout formats the default run identifier.
	RunIDLayout = "20060102-150405"

	DefaultCubeHalfSize           = 0.04
	DefaultBallRadius             = 0.02
	DefaultContainerHalfExtent    = 0.6
	DefaultContainerWallHeight    = 0.45
	DefaultContainerWallThickness = 0.04

	DefaultMotion      = "walk"
	DefaultTargetScale = 0.25
	DefaultRootHeight  = 1.0
	DefaultStiffness   = 80.0
	DefaultDamping     = 8.0
	DefaultForceLimit  = 400.0
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Tasks       string  `yaml:"tasks" validate:"tasklist"`
	Difficulty  string  `yaml:"difficulty" validate:"oneof=easy medium hard"`
	Steps       int     `yaml:"steps" validate:"min=1"`
	WarmupSteps int     `yaml:"warmup_steps" validate:"min=0"`
	Dt          float64 `yaml:"dt" validate:"gt=0"`
	Device      string  `yaml:"device" validate:"required"`
	OutputDir   string  `yaml:"output_dir" validate:"required"`
	RunID       string  `yaml:"run_id" validate:"required,excludesall=/\\"`
	Profile     bool    `yaml:"profile"`
	LogLevel    string  `yaml:"log_level" validate:"oneof=debug info warn error"`

	GridStack   GridStackConfig   `yaml:"grid_stack"`
	Pour        PourConfig        `yaml:"particle_pour"`
	Articulated ArticulatedConfig `yaml:"articulated_urdf"`
	Sinks       SinkConfig        `yaml:"sinks"`
}

type GridStackConfig struct {
	Count    *int    `yaml:"count,omitempty" validate:"omitempty,min=0"`
	HalfSize float64 `yaml:"half_size" validate:"gt=0"`
	// Spacing <= 0 selects 2.2 * HalfSize.
	Spacing float64 `yaml:"spacing"`
}

type PourConfig struct {
	Count               *int    `yaml:"count,omitempty" validate:"omitempty,min=0"`
	Radius              float64 `yaml:"radius" validate:"gt=0"`
	ContainerHalfExtent float64 `yaml:"container_half_extent" validate:"gt=0"`
	WallHeight          float64 `yaml:"wall_height" validate:"gt=0"`
	WallThickness       float64 `yaml:"wall_thickness" validate:"gt=0"`
	Seed                int64   `yaml:"seed"`
}

type ArticulatedConfig struct {
	URDF        string  `yaml:"urdf"`
	Motion      string  `yaml:"motion" validate:"oneof=walk run"`
	TargetScale float64 `yaml:"target_scale"`
	RootHeight  float64 `yaml:"root_height"`
	Stiffness   float64 `yaml:"stiffness" validate:"min=0"`
	Damping     float64 `yaml:"damping" validate:"min=0"`
	ForceLimit  float64 `yaml:"force_limit" validate:"min=0"`
}

type SinkConfig struct {
	// CSV writes results_steps.csv and results_summary.csv to OutputDir.
	CSV          bool         `yaml:"csv"`
	DBPath       string       `yaml:"db_path"`
	PromTextfile string       `yaml:"prom_textfile"`
	Influx       InfluxConfig `yaml:"influx"`
}

type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org" validate:"required_with=URL"`
	Bucket string `yaml:"bucket" validate:"required_with=URL"`
}

func (c InfluxConfig) Enabled() bool { return c.URL != "" }

func DefaultConfig() *Config {
	return &Config{
		Tasks:       DefaultTasks,
		Difficulty:  DefaultDifficulty,
		Steps:       DefaultSteps,
		WarmupSteps: DefaultWarmupSteps,
		Dt:          DefaultDt,
		Device:      DefaultDevice,
		OutputDir:   DefaultOutputDir,
		RunID:       NewRunID(time.Now()),
		Profile:     true,
		LogLevel:    "info",
		GridStack: GridStackConfig{
			HalfSize: DefaultCubeHalfSize,
		},
		Pour: PourConfig{
			Radius:              DefaultBallRadius,
			ContainerHalfExtent: DefaultContainerHalfExtent,
			WallHeight:          DefaultContainerWallHeight,
			WallThickness:       DefaultContainerWallThickness,
		},
		Articulated: ArticulatedConfig{
			Motion:      DefaultMotion,
			TargetScale: DefaultTargetScale,
			RootHeight:  DefaultRootHeight,
			Stiffness:   DefaultStiffness,
			Damping:     DefaultDamping,
			ForceLimit:  DefaultForceLimit,
		},
		Sinks: SinkConfig{CSV: true},
	}
}

func NewRunID(t time.Time) string {
	return t.Format(RunIDLayout)
}

// TaskNames splits the comma-separated selection, trimming blanks.
func (c *Config) TaskNames() []string {
	return splitTasks(c.Tasks)
}

func splitTasks(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("tasklist", func(fl validator.FieldLevel) bool {
		return len(splitTasks(fl.Field().String())) > 0
	})
}

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
