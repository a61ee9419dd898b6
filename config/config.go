package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/meysamhadeli/selfie/constants/lipgloss"
	"github.com/meysamhadeli/selfie/engine"
	"github.com/meysamhadeli/selfie/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Version                       string   `mapstructure:"version"`
	// Mode is interactive, readonly or overwrite. Empty means it is derived from CI.
	Mode                          string   `mapstructure:"mode"`
	CI                            bool     `mapstructure:"ci"`
	ProjectDir                    string   `mapstructure:"project_dir"`
	SnapshotRoot                  string   `mapstructure:"snapshot_root"`
	SourceRoots                   []string `mapstructure:"source_roots"`
	SnapshotFolderName            string   `mapstructure:"snapshot_folder_name"`
	Extension                     string   `mapstructure:"extension"`
	JavaVersion                   int      `mapstructure:"java_version"`
	AllowMultipleEquivalentWrites bool     `mapstructure:"allow_multiple_equivalent_writes"`
	LogLevel                      string   `mapstructure:"log_level"`
	Theme                         string   `mapstructure:"theme"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:                       "0.1.0",
	Extension:                     engine.DefaultExtension,
	JavaVersion:                   engine.DefaultJavaVersion,
	AllowMultipleEquivalentWrites: true,
	LogLevel:                      "info",
	Theme:                         "dracula",
}

// ConfigName is the file looked up in the working directory, as .yaml, .yml or .json.
const ConfigName = "selfie-config"

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	var config Config

	setDefaults()

	// SELFIE_SNAPSHOT_ROOT, SELFIE_LOG_LEVEL, ...
	viper.SetEnvPrefix("selfie")
	viper.AutomaticEnv()

	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if configType := GetConfigFileType(cfgFile); configType != "" {
			viper.SetConfigType(configType)
		}
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		viper.SetConfigName(ConfigName)
		viper.AddConfigPath(cwd)

		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigType("json")
			if err := viper.ReadInConfig(); err != nil {
				// no config file is fine, defaults apply
				slog.Debug("no configuration file found, using defaults", "dir", cwd)
			}
		}
	}

	if rootCmd != nil {
		bindFlags(rootCmd)
	}

	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if config.ProjectDir == "" {
		config.ProjectDir = cwd
	} else if !filepath.IsAbs(config.ProjectDir) {
		config.ProjectDir = filepath.Join(cwd, config.ProjectDir)
	}

	return &config, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("mode", DefaultConfig.Mode)
	viper.SetDefault("ci", DefaultConfig.CI)
	viper.SetDefault("project_dir", DefaultConfig.ProjectDir)
	viper.SetDefault("snapshot_root", DefaultConfig.SnapshotRoot)
	viper.SetDefault("source_roots", DefaultConfig.SourceRoots)
	viper.SetDefault("snapshot_folder_name", DefaultConfig.SnapshotFolderName)
	viper.SetDefault("extension", DefaultConfig.Extension)
	viper.SetDefault("java_version", DefaultConfig.JavaVersion)
	viper.SetDefault("allow_multiple_equivalent_writes", DefaultConfig.AllowMultipleEquivalentWrites)
	viper.SetDefault("log_level", DefaultConfig.LogLevel)
	viper.SetDefault("theme", DefaultConfig.Theme)
}

// bindEnv binds the variables build servers and users already set.
func bindEnv() {
	_ = viper.BindEnv("mode", "SELFIE", "selfie")
	_ = viper.BindEnv("ci", "CI", "ci")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("mode", flags.Lookup("mode"))
	_ = viper.BindPFlag("project_dir", flags.Lookup("project_dir"))
	_ = viper.BindPFlag("snapshot_root", flags.Lookup("snapshot_root"))
	_ = viper.BindPFlag("source_roots", flags.Lookup("source_roots"))
	_ = viper.BindPFlag("extension", flags.Lookup("extension"))
	_ = viper.BindPFlag("java_version", flags.Lookup("java_version"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log_level"))
	_ = viper.BindPFlag("theme", flags.Lookup("theme"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	flags.String("mode", DefaultConfig.Mode, "Snapshot mode: 'interactive', 'readonly' or 'overwrite'. Defaults to readonly on CI and interactive elsewhere.")
	flags.String("project_dir", DefaultConfig.ProjectDir, "The project whose standard test folders hold the snapshots, defaults to the working directory.")
	flags.String("snapshot_root", DefaultConfig.SnapshotRoot, "Overrides the folder holding snapshot files (e.g. 'src/test/kotlin').")
	flags.StringSlice("source_roots", DefaultConfig.SourceRoots, "Extra folders searched for test sources.")
	flags.String("extension", DefaultConfig.Extension, "The extension of snapshot files.")
	flags.Int("java_version", DefaultConfig.JavaVersion, "The Java version of the test sources, text blocks need 15 or later.")
	flags.String("log_level", DefaultConfig.LogLevel, "Log level: 'debug', 'info', 'warn' or 'error'.")
	flags.String("theme", DefaultConfig.Theme, "Set the highlighting theme for rendered literals. (e.g., 'dracula', 'monokai', 'github')")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

// CalcMode resolves the snapshot mode. An explicit mode wins, otherwise CI runs are readonly.
func (c *Config) CalcMode() (engine.Mode, error) {
	if c.Mode != "" {
		return engine.ParseMode(c.Mode)
	}
	if c.CI {
		return engine.Readonly, nil
	}
	return engine.Interactive, nil
}

// LayoutOptions converts the config into the options of engine.NewLayout.
func (c *Config) LayoutOptions() engine.LayoutOptions {
	return engine.LayoutOptions{
		ProjectDir:         filepath.ToSlash(c.ProjectDir),
		SnapshotRoot:       c.resolve(c.SnapshotRoot),
		SourceRoots:        c.resolveAll(c.SourceRoots),
		SnapshotFolderName: c.SnapshotFolderName,
		Extension:          c.Extension,
		JavaVersion:        c.JavaVersion,
		StrictWrites:       !c.AllowMultipleEquivalentWrites,
	}
}

// NewLayout builds the layout over the real file system, honoring `.selfie-ignore` in the project dir.
func (c *Config) NewLayout() (*engine.Layout, error) {
	patterns, err := utils.GetIgnorePatterns(c.ProjectDir)
	if err != nil {
		return nil, err
	}
	return engine.NewLayout(engine.NewOSFileSystem(patterns), c.LayoutOptions()), nil
}

// NewSystem wires layout, mode, source discovery and logger into an engine.System.
func (c *Config) NewSystem(logOutput io.Writer) (*engine.System, error) {
	mode, err := c.CalcMode()
	if err != nil {
		return nil, err
	}
	logger, err := NewLogger(c.LogLevel, logOutput)
	if err != nil {
		return nil, err
	}
	layout, err := c.NewLayout()
	if err != nil {
		return nil, err
	}
	return engine.NewSystem(engine.Options{
		Layout:    layout,
		Mode:      mode,
		Discovery: engine.NewSourceDiscovery(layout),
		Logger:    logger,
	}), nil
}

func (c *Config) resolve(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return filepath.ToSlash(dir)
	}
	return filepath.ToSlash(filepath.Join(c.ProjectDir, dir))
}

func (c *Config) resolveAll(dirs []string) []string {
	resolved := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		resolved = append(resolved, c.resolve(dir))
	}
	return resolved
}

// NewLogger returns a text logger at the given level, writing to w or stderr when w is nil.
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// PrintWarnings reports settings that are legal but probably not what the user meant.
func (c *Config) PrintWarnings(w io.Writer) {
	if c.Mode != "" && c.CI && !strings.EqualFold(c.Mode, engine.Readonly.String()) {
		fmt.Fprintln(w, lipgloss.Yellow.Render(fmt.Sprintf("Running on CI in %s mode, snapshots may be written.", c.Mode)))
	}
	if c.JavaVersion < 15 {
		fmt.Fprintln(w, lipgloss.Yellow.Render(fmt.Sprintf("Java %d has no text blocks, multi-line strings are written on one line.", c.JavaVersion)))
	}
}
