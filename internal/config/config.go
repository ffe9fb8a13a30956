package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Input      string       `mapstructure:"input"`
	Output     string       `mapstructure:"output"`
	Sequential bool         `mapstructure:"sequential"`
	LogLevel   string       `mapstructure:"log_level"`
	Kernel     KernelConfig `mapstructure:"kernel"`
	Exec       ExecConfig   `mapstructure:"exec"`
	Bench      BenchConfig  `mapstructure:"bench"`
}

type KernelConfig struct {
	Size   int     `mapstructure:"size"`
	Filter string  `mapstructure:"filter"`
	Sigma  float64 `mapstructure:"sigma"`
}

// ExecConfig holds the raw scheduling values. They are validated by
// conv.NewExecConfig, not here.
type ExecConfig struct {
	Threads   int    `mapstructure:"threads"`
	Schedule  string `mapstructure:"schedule"`
	Chunk     int    `mapstructure:"chunk"`
	Tile      int    `mapstructure:"tile"`
	LoopOrder int    `mapstructure:"loop_order"`
}

type BenchConfig struct {
	Runs   int    `mapstructure:"runs"`
	Warmup int    `mapstructure:"warmup"`
	Format string `mapstructure:"format"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Input:      "",
		Output:     "",
		Sequential: false,
		LogLevel:   "info",
		Kernel: KernelConfig{
			Size:   3,
			Filter: "gaussian",
			Sigma:  0,
		},
		Exec: ExecConfig{
			Threads:   4,
			Schedule:  "static",
			Chunk:     1,
			Tile:      0,
			LoopOrder: 0,
		},
		Bench: BenchConfig{
			Runs:   5,
			Warmup: 1,
			Format: "table",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.StringP("input", "i", defaults.Input, "Input image path")
	fs.StringP("output", "o", defaults.Output, "Output image path (.png|.jpg|.bmp|.tif|.webp)")
	fs.BoolP("sequential", "S", defaults.Sequential, "Run the sequential baseline instead of the parallel engine")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.IntP("kernel-size", "k", defaults.Kernel.Size, "Kernel size (3|5|7|9|11|15|21|31)")
	fs.StringP("filter", "f", defaults.Kernel.Filter, "Filter type (gaussian|box)")
	fs.Float64("sigma", defaults.Kernel.Sigma, "Gaussian sigma, <= 0 selects size/6")
	fs.IntP("threads", "t", defaults.Exec.Threads, "Number of worker threads")
	fs.StringP("schedule", "s", defaults.Exec.Schedule, "Scheduling policy (static|dynamic|guided)")
	fs.IntP("chunk", "c", defaults.Exec.Chunk, "Chunk size in work units")
	fs.IntP("tile", "T", defaults.Exec.Tile, "Tile size in pixels, 0 disables tiling")
	fs.IntP("loop-order", "l", defaults.Exec.LoopOrder, "Loop order (0=row-major, 1=column-major)")
	fs.Int("runs", defaults.Bench.Runs, "Timed benchmark runs per configuration")
	fs.Int("warmup", defaults.Bench.Warmup, "Untimed warmup runs per configuration")
	fs.String("format", defaults.Bench.Format, "Report format (table|json|csv)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("CONVBENCH")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		path, err := homedir.Expand(opts.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("expand config path: %w", err)
		}

		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("convbench")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	var err error
	if cfg.Input, err = homedir.Expand(cfg.Input); err != nil {
		return Config{}, fmt.Errorf("expand input path: %w", err)
	}
	if cfg.Output, err = homedir.Expand(cfg.Output); err != nil {
		return Config{}, fmt.Errorf("expand output path: %w", err)
	}

	return cfg, nil
}

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("input", c.Input)
	v.SetDefault("output", c.Output)
	v.SetDefault("sequential", c.Sequential)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("kernel.size", c.Kernel.Size)
	v.SetDefault("kernel.filter", c.Kernel.Filter)
	v.SetDefault("kernel.sigma", c.Kernel.Sigma)
	v.SetDefault("exec.threads", c.Exec.Threads)
	v.SetDefault("exec.schedule", c.Exec.Schedule)
	v.SetDefault("exec.chunk", c.Exec.Chunk)
	v.SetDefault("exec.tile", c.Exec.Tile)
	v.SetDefault("exec.loop_order", c.Exec.LoopOrder)
	v.SetDefault("bench.runs", c.Bench.Runs)
	v.SetDefault("bench.warmup", c.Bench.Warmup)
	v.SetDefault("bench.format", c.Bench.Format)
}

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = []struct{ flag, key string }{
	{"input", "input"},
	{"output", "output"},
	{"sequential", "sequential"},
	{"log-level", "log_level"},
	{"kernel-size", "kernel.size"},
	{"filter", "kernel.filter"},
	{"sigma", "kernel.sigma"},
	{"threads", "exec.threads"},
	{"schedule", "exec.schedule"},
	{"chunk", "exec.chunk"},
	{"tile", "exec.tile"},
	{"loop-order", "exec.loop_order"},
	{"runs", "bench.runs"},
	{"warmup", "bench.warmup"},
	{"format", "bench.format"},
}

// bindFlags binds every registered flag found in fs to its nested key, so
// a flag wins only when set and otherwise falls through to env, file and
// defaults.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(fk.key, f); err != nil {
			return fmt.Errorf("%s: %w", fk.flag, err)
		}
	}

	return nil
}
