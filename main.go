// Package main provides the entry point for the ttstudio CLI application.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dgnsrekt/ttstudio/ui"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	baseURL    string
	debug      bool
	mouse      bool
	textFile   string
	noSave     bool
	style      string

	logCloser = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "ttstudio [edge|azure]",
		Short: "A text-to-speech studio in your terminal",
		Long: paragraph(
			fmt.Sprintf("\nPick a voice, tune it and %s from the terminal.", keyword("generate speech")),
		),
		Example: paragraph("ttstudio\nttstudio azure --file notes.txt"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgs:        []string{string(ttypes.ProviderEdge), string(ttypes.ProviderAzure)},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// providerArg resolves the provider from the first argument, then the
// config file.
func providerArg(args []string) (ttypes.ProviderKind, error) {
	name := viper.GetString("provider")
	if len(args) > 0 {
		name = args[0]
	}
	kind, ok := ttypes.ParseProvider(name)
	if !ok {
		return ttypes.ProviderNone, fmt.Errorf("unknown provider %q: use %s or %s", name, ttypes.ProviderEdge, ttypes.ProviderAzure)
	}
	return kind, nil
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != styles.AutoStyle && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(expandPath(configFile))
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	debug = viper.GetBool("debug")
	closer, err := setupLog(debug)
	if err != nil {
		return err
	}
	logCloser = closer

	mouse = viper.GetBool("mouse")
	noSave = noSave || !viper.GetBool("save")

	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	if textFile != "" {
		textFile = expandPath(textFile)
		if _, err := os.Stat(textFile); err != nil {
			return fmt.Errorf("unable to open text file: %w", err)
		}
	}

	return nil
}

func execute(_ *cobra.Command, args []string) error {
	kind, err := providerArg(args)
	if err != nil {
		return err
	}
	return runTUI(kind)
}

func runTUI(kind ttypes.ProviderKind) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the configured one if unset or invalid
	if cfg.GlamourStyle == "" || validateStyle(cfg.GlamourStyle) != nil {
		cfg.GlamourStyle = style
	}
	cfg.Provider = kind
	cfg.EnableMouse = mouse
	cfg.TextFile = textFile
	if d := viper.GetString("download_dir"); d != "" {
		cfg.DownloadDir = d
	}
	cfg.DownloadDir = expandPath(cfg.DownloadDir)

	app, err := newApp(kind)
	if err != nil {
		return err
	}

	p, ctrl := ui.NewProgram(cfg, app.deps)
	if key := app.apiKey(); key != "" && ctrl.Controls().APIKey == "" {
		ctrl.SetAPIKey(key)
	}

	_, runErr := p.Run()
	if err := ctrl.Close(); err != nil {
		log.Error("Could not save settings", "error", err)
	}
	app.close()

	if runErr != nil {
		return fmt.Errorf("unable to run tui program: %w", runErr)
	}
	return nil
}

func expandPath(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return os.ExpandEnv(p)
	}
	return path
}

func main() {
	err := rootCmd.Execute()
	_ = logCloser()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// A missing .env is fine; AZURE_TTS_KEY may come from the shell.
	_ = godotenv.Load()

	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVar(&baseURL, "base", "", "backend base URL (default per provider)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs to the log directory")
	rootCmd.PersistentFlags().BoolVar(&noSave, "no-save", false, "do not persist settings")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "help style name or JSON path")
	rootCmd.Flags().StringVarP(&textFile, "file", "f", "", "load text from a file and reload it on change")
	rootCmd.Flags().String("download-dir", "", "directory for downloaded clips")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support (seek by clicking the progress bar)")

	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("download_dir", rootCmd.Flags().Lookup("download-dir"))
	_ = viper.BindEnv("azure.key", "AZURE_TTS_KEY", "TTSTUDIO_AZURE_KEY")

	viper.SetDefault("provider", string(ttypes.ProviderEdge))
	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("save", true)
	viper.SetDefault("preferred", "zh-")
	viper.SetDefault("cache.memory_mb", 32)
	viper.SetDefault("cache.disk_mb", 256)
	viper.SetDefault("cache.compression", 3)
	viper.SetDefault("cache.ttl", "168h")

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, sayCmd, presetCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "ttstudio")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "ttstudio")}, dirs...)
	}

	if c := os.Getenv("TTSTUDIO_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	dirs = slices.Compact(dirs)

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("ttstudio")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ttstudio")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], "ttstudio.yml")
	if err := writeDefaultConfig(configFile, false); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
