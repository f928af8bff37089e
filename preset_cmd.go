package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dgnsrekt/ttstudio/internal/preset"
	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	presetProvider string

	presetCmd = &cobra.Command{
		Use:   "preset",
		Short: "Manage the presets stored on the backend",
		Long: paragraph(fmt.Sprintf("\n%s named voice presets. Presets live on the backend, "+
			"one list per provider.", keyword("Manage"))),
		Example: paragraph("ttstudio preset list\nttstudio preset save narrator --voice en-US-AriaNeural --rate 10\n" +
			"ttstudio preset export presets.yml --provider azure"),
		Args: cobra.NoArgs,
	}

	presetListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List presets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := presetStore()
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context())
			if err != nil {
				return userError(err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), dim("No presets yet."))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Voice, s.Style)
			}
			return tw.Flush()
		},
	}

	presetShowCmd = &cobra.Command{
		Use:   "show NAME",
		Short: "Print a preset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := presetStore()
			if err != nil {
				return err
			}
			p, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(p); err != nil {
				return fmt.Errorf("unable to encode preset: %w", err)
			}
			return enc.Close()
		},
	}

	presetSaveCmd = &cobra.Command{
		Use:   "save NAME",
		Short: "Save a preset from flags and the saved page controls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, kind, err := presetStore()
			if err != nil {
				return err
			}
			p := presetFromFlags(cmd, kind, args[0])
			if p.Voice == "" {
				return errors.New("no voice: pass --voice or pick one in the studio first")
			}
			if err := store.Save(cmd.Context(), p); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s %s\n", keyword(p.Name), dim(p.Voice))
			return nil
		},
	}

	presetDeleteCmd = &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a preset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := presetStore()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", keyword(strings.TrimSpace(args[0])))
			return nil
		},
	}

	presetExportCmd = &cobra.Command{
		Use:   "export FILE",
		Short: "Write every preset to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, kind, err := presetStore()
			if err != nil {
				return err
			}
			n, err := preset.ExportFile(cmd.Context(), store, string(kind), args[0])
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d presets to %s\n", n, args[0])
			return nil
		},
	}

	presetImportCmd = &cobra.Command{
		Use:   "import FILE",
		Short: "Save every preset of a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := presetStore()
			if err != nil {
				return err
			}
			n, err := preset.ImportFile(cmd.Context(), store, args[0])
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d presets\n", n)
			return nil
		},
	}
)

func init() {
	presetCmd.PersistentFlags().StringVarP(&presetProvider, "provider", "P", "", "edge or azure (default from config)")

	f := presetSaveCmd.Flags()
	f.String("voice", "", "voice id (default: saved voice)")
	f.String("style", "", "speaking style (azure)")
	f.Int("rate", 0, "rate in percent")
	f.Int("pitch", 0, "pitch offset")
	f.Int("volume", 0, "volume in percent")

	presetCmd.AddCommand(presetListCmd, presetShowCmd, presetSaveCmd, presetDeleteCmd, presetExportCmd, presetImportCmd)
}

func presetStore() (preset.Store, ttypes.ProviderKind, error) {
	kind, err := providerArg(nonEmpty(presetProvider))
	if err != nil {
		return nil, "", err
	}
	base := providerBase(kind)
	if base == "" {
		base = provider.DefaultBase(kind)
	}
	return preset.NewClient(base, nil), kind, nil
}

// presetFromFlags starts from the saved page controls and applies the
// flags that were set.
func presetFromFlags(cmd *cobra.Command, kind ttypes.ProviderKind, name string) preset.Preset {
	rec := savedRecord(kind)
	profile := profileFor(kind)
	f := cmd.Flags()

	p := preset.Preset{
		Name:   strings.TrimSpace(name),
		Voice:  rec.Voice,
		Rate:   intFlag(false, 0, rec.Rate),
		Pitch:  intFlag(false, 0, rec.Pitch),
		Volume: intFlag(false, 0, rec.Volume),
	}
	if profile.Styles {
		p.Style = rec.Style
	}

	if v, _ := f.GetString("voice"); v != "" {
		p.Voice = v
	}
	if s, _ := f.GetString("style"); s != "" && profile.Styles {
		p.Style = s
	}
	if f.Changed("rate") {
		p.Rate, _ = f.GetInt("rate")
	}
	if f.Changed("pitch") {
		p.Pitch, _ = f.GetInt("pitch")
	}
	if f.Changed("volume") {
		p.Volume, _ = f.GetInt("volume")
	}
	p.Rate = profile.Rate.Clamp(p.Rate)
	p.Pitch = profile.Pitch.Clamp(p.Pitch)
	p.Volume = profile.Volume.Clamp(p.Volume)
	return p
}

// userError reduces err to the message a user should see.
func userError(err error) error {
	return errors.New(ttypes.MessageOf(err))
}
