package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generate man pages",
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return fmt.Errorf("unable to create man page: %w", err)
		}

		page = page.WithSection("Files", "Settings are stored per provider under the user data directory. "+
			"The config file is ttstudio.yml in the user config directory.")
		page = page.WithSection("Environment", "AZURE_TTS_KEY holds the Azure Speech key. "+
			"TTSTUDIO_CONFIG_HOME overrides the config directory. "+
			"Any config key can be set as TTSTUDIO_<KEY>.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
