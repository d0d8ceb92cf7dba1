package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации ядра мира.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Tick      TickConfig      `yaml:"tick"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Blocks    BlocksConfig    `yaml:"blocks"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Name          string `yaml:"name"`
	Seed          int64  `yaml:"seed"`
	Generator     string `yaml:"generator"`
	MinChunkY     int64  `yaml:"min_chunk_y"`
	MaxChunkY     int64  `yaml:"max_chunk_y"`
	ViewDistance  int    `yaml:"view_distance"`
	PreloadRadius int    `yaml:"preload_radius"`
}

type TickConfig struct {
	TargetTPS        int     `yaml:"target_tps"`
	MaxTicksPerFrame int     `yaml:"max_ticks_per_frame"`
	SimulationSpeed  float64 `yaml:"simulation_speed"`
}

type MeshConfig struct {
	Workers           int  `yaml:"workers"`
	ResultCapacity    int  `yaml:"result_capacity"` // 0: без ограничения
	MaxResultsPerTick int  `yaml:"max_results_per_tick"`
	Greedy            bool `yaml:"greedy"`
	AmbientOcclusion  bool `yaml:"ambient_occlusion"`
	FaceCulling       bool `yaml:"face_culling"`
	WaterMesh         bool `yaml:"water_mesh"`
}

type FluidConfig struct {
	Enabled        bool `yaml:"enabled"`
	UpdateInterval int  `yaml:"update_interval"`
}

type BlocksConfig struct {
	// Path: TOML-файл описаний блоков; пустой путь оставляет встроенный набор.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Name:          "world",
			Generator:     "superflat",
			MinChunkY:     -4,
			MaxChunkY:     16,
			ViewDistance:  4,
			PreloadRadius: 2,
		},
		Tick: TickConfig{
			TargetTPS:        20,
			MaxTicksPerFrame: 10,
			SimulationSpeed:  1.0,
		},
		Mesh: MeshConfig{
			Workers:           4,
			ResultCapacity:    0,
			MaxResultsPerTick: 16,
			Greedy:            true,
			AmbientOcclusion:  true,
			FaceCulling:       true,
			WaterMesh:         true,
		},
		Fluid: FluidConfig{
			Enabled:        true,
			UpdateInterval: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-core",
		},
	}
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (m *MetricsConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(m.Port, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG, иначе возвращает дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.World.MinChunkY > c.World.MaxChunkY {
		return fmt.Errorf("world.min_chunk_y (%d) больше world.max_chunk_y (%d)", c.World.MinChunkY, c.World.MaxChunkY)
	}
	if c.Tick.TargetTPS < 1 {
		return fmt.Errorf("tick.target_tps должен быть >= 1, получено %d", c.Tick.TargetTPS)
	}
	if c.Mesh.Workers < 1 {
		return fmt.Errorf("mesh.workers должен быть >= 1, получено %d", c.Mesh.Workers)
	}
	if c.Mesh.ResultCapacity < 0 {
		return fmt.Errorf("mesh.result_capacity должен быть >= 0, получено %d", c.Mesh.ResultCapacity)
	}
	if c.Fluid.UpdateInterval < 1 {
		return fmt.Errorf("fluid.update_interval должен быть >= 1, получено %d", c.Fluid.UpdateInterval)
	}
	return nil
}
