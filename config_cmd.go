package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfig = `# provider opened by default: edge or azure
provider: "edge"
# backend base URL for every provider; edge.base and azure.base override it
# base: "http://127.0.0.1:5000/api"
# help style name or JSON path (default "auto")
style: "auto"
# mouse support: click the progress bar to seek
mouse: false
# persist settings between runs
save: true
# voice family listed first
preferred: "zh-"
# where downloaded clips go
download_dir: "."
# write debug logs
debug: false

edge:
  # base: "http://127.0.0.1:5000/api/edge"

azure:
  # base: "http://127.0.0.1:5000/api/azure"
  # key may also come from AZURE_TTS_KEY or a .env file
  # key: ""
  region: "eastus"
  # regions: ["eastus", "westeurope", "southeastasia"]

# audio clip cache
cache:
  memory_mb: 32
  disk_mb: 256
  # zstd level, 0 stores clips uncompressed
  compression: 3
  ttl: "168h"
  # dir: "~/.cache/ttstudio/audio"
`

var (
	configPathOnly bool
	configReset    bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Edit the ttstudio config file",
		Long: paragraph(fmt.Sprintf("\n%s the ttstudio config file with EDITOR. A commented default file is "+
			"written first when none exists, and the result is checked before returning.", keyword("Edit"))),
		Example: paragraph("ttstudio config\nttstudio config --path\nttstudio config --config path/to/config.yml"),
		Args:    cobra.NoArgs,
		RunE:    runConfig,
	}
)

func init() {
	configCmd.Flags().BoolVar(&configPathOnly, "path", false, "print the config file path and exit")
	configCmd.Flags().BoolVar(&configReset, "reset", false, "overwrite the config file with the defaults")
}

func runConfig(cmd *cobra.Command, _ []string) error {
	file, err := configPath()
	if err != nil {
		return err
	}
	if configPathOnly {
		fmt.Fprintln(cmd.OutOrStdout(), file)
		return nil
	}
	if err := writeDefaultConfig(file, configReset); err != nil {
		return err
	}

	c, err := editor.Cmd("ttstudio", file)
	if err != nil {
		return fmt.Errorf("unable to set config file: %w", err)
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("unable to run command: %w", err)
	}

	if err := checkConfig(file); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", keyword("Warning:"), err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote config file to:", file)
	return nil
}

// configPath resolves --config, falling back to the file viper found or the
// default location.
func configPath() (string, error) {
	file := configFile
	if file == "" {
		file = viper.ConfigFileUsed()
	}
	file = expandPath(file)
	if ext := filepath.Ext(file); ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("'%s' is not a supported configuration type: use '.yaml' or '.yml'", ext)
	}
	return file, nil
}

// writeDefaultConfig creates file with the default contents unless it exists
// and overwrite is false.
func writeDefaultConfig(file string, overwrite bool) error {
	_, err := os.Stat(file)
	switch {
	case err == nil && !overwrite:
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return fmt.Errorf("unable to create directory: %w", err)
	}
	if err := os.WriteFile(file, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}

// checkConfig reports YAML syntax errors and unknown providers.
func checkConfig(file string) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}
	var cfg struct {
		Provider string `yaml:"provider"`
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return fmt.Errorf("config file is not valid YAML: %w", err)
	}
	if cfg.Provider != "" {
		if _, err := providerArg([]string{cfg.Provider}); err != nil {
			return err
		}
	}
	return nil
}
