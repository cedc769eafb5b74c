package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName = "davinci"
	envPrefix  = "davinci"
)

// settings is the resolved CLI configuration. Flags win over environment
// variables, which win over the config file.
type settings struct {
	Backend string        `mapstructure:"backend"`
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Key     string        `mapstructure:"key"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
	JSON    bool          `mapstructure:"json"`
	Verbose bool          `mapstructure:"verbose"`
}

// configFile is the on-disk shape written by `config init`.
type configFile struct {
	Backend string `yaml:"backend"`
	URL     string `yaml:"url,omitempty"`
	Token   string `yaml:"token,omitempty"`
	Key     string `yaml:"key,omitempty"`
	Secret  string `yaml:"secret,omitempty"`
	Timeout string `yaml:"timeout"`
	Retries int    `yaml:"retries"`
}

// defaultConfigPath returns the per-user location of davinci.yaml.
func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, configName, configName+".yaml"), nil
}

// loadSettings resolves settings for cmd from its flags, DAVINCI_*
// environment variables (including a .env file in the working directory)
// and davinci.yaml.
func loadSettings(cmd *cobra.Command, file string) (settings, error) {
	var s settings

	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		if path, err := defaultConfigPath(); err == nil {
			v.AddConfigPath(filepath.Dir(path))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return s, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return s, err
	}
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("failed to parse config: %w", err)
	}
	return s, nil
}

// writeConfigFile stores s at path, creating parent directories. The file
// holds credentials and is written owner-only.
func writeConfigFile(path string, s settings, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(configFile{
		Backend: s.Backend,
		URL:     s.URL,
		Token:   s.Token,
		Key:     s.Key,
		Secret:  s.Secret,
		Timeout: s.Timeout.String(),
		Retries: s.Retries,
	})
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the CLI configuration",
}

// Config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file",
	Long: `Writes the current settings (flags, environment and any existing
config) to davinci.yaml. The file is written to --config when set, otherwise
to the user config directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := configPath
		if path == "" {
			var err error
			if path, err = defaultConfigPath(); err != nil {
				return err
			}
		}

		if err := writeConfigFile(path, cfg, force); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		if cfg.JSON {
			return outputJSON(cmd, map[string]string{"path": path})
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
		return err
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}
