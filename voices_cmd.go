package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dgnsrekt/ttstudio/internal/voice"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	voicesAll    bool
	voicesFilter string
	voicesRegion string

	voicesCmd = &cobra.Command{
		Use:   "voices [edge|azure]",
		Short: "List the voices of a provider",
		Long: paragraph(fmt.Sprintf("\n%s the voice catalog, grouped by language with the preferred family first. "+
			"Use --all to query both providers at once.", keyword("List"))),
		Example: paragraph("ttstudio voices\nttstudio voices azure --region westeurope\nttstudio voices --all --filter aria"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runVoices,
	}
)

func init() {
	voicesCmd.Flags().BoolVarP(&voicesAll, "all", "a", false, "list voices of every provider")
	voicesCmd.Flags().StringVar(&voicesFilter, "filter", "", "fuzzy filter on voice names")
	voicesCmd.Flags().StringVar(&voicesRegion, "region", "", "azure region (default from config)")
}

type catalog struct {
	kind   ttypes.ProviderKind
	voices []ttypes.Voice
}

func runVoices(cmd *cobra.Command, args []string) error {
	kinds := []ttypes.ProviderKind{ttypes.ProviderEdge, ttypes.ProviderAzure}
	if !voicesAll {
		kind, err := providerArg(args)
		if err != nil {
			return err
		}
		kinds = []ttypes.ProviderKind{kind}
	}

	catalogs := make([]catalog, len(kinds))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, kind := range kinds {
		g.Go(func() error {
			voices, err := fetchVoices(ctx, kind)
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			catalogs[i] = catalog{kind: kind, voices: voices}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	plain := !isTerminal(w)
	for _, c := range catalogs {
		if c.voices == nil {
			continue
		}
		printCatalog(w, c, plain)
	}
	return nil
}

func fetchVoices(ctx context.Context, kind ttypes.ProviderKind) ([]ttypes.Voice, error) {
	client, err := provider.New(kind, providerBase(kind))
	if err != nil {
		return nil, err
	}

	q := provider.VoiceQuery{}
	if kind == ttypes.ProviderAzure {
		q.APIKey = azureKey()
		if q.APIKey == "" {
			if voicesAll {
				fmt.Fprintln(os.Stderr, dim("Skipping azure: no API key, set AZURE_TTS_KEY."))
				return nil, nil
			}
			return nil, ttypes.ErrMissingKey
		}
		q.Region = voicesRegion
		if q.Region == "" {
			q.Region = profileFor(kind).DefaultRegion
		}
	}
	return client.ListVoices(ctx, q)
}

func printCatalog(w io.Writer, c catalog, plain bool) {
	profile := profileFor(c.kind)
	voices := voice.Filter(c.voices, strings.TrimSpace(voicesFilter))

	if plain {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, v := range voices {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.kind, v.ID(), v.Locale, v.Gender, strings.Join(v.StyleList, ","))
		}
		_ = tw.Flush()
		return
	}

	fmt.Fprintf(w, "\n%s %s\n", keyword(string(c.kind)), dim(humanize.Comma(int64(len(voices)))+" voices"))
	for _, g := range voice.GroupVoices(voices, profile.Preferred, profile.GroupBy) {
		fmt.Fprintf(w, "\n  %s\n", g.Label)
		for _, v := range g.Voices {
			fmt.Fprintf(w, "    %-32s %s\n", v.ID(), dim(voice.OptionLabel(v)))
		}
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec
}
