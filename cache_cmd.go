package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dgnsrekt/ttstudio/internal/cache"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	cacheProvider string
	cacheJobs     int

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the audio cache",
		Long: paragraph(fmt.Sprintf("\n%s the clips kept in memory and on disk. Clips are keyed by "+
			"their URL; relative /api/audio paths resolve against the provider backend.", keyword("Manage"))),
		Example: paragraph("ttstudio cache stats\nttstudio cache warm /api/audio/intro.mp3 --provider azure\nttstudio cache clear"),
		Args:    cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := cache.NewManager(cacheConfig())
			if err != nil {
				return fmt.Errorf("unable to open audio cache: %w", err)
			}
			defer mgr.Close() //nolint:errcheck
			return writeCacheStats(cmd.OutOrStdout(), mgr.Stats())
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached clip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := cache.NewManager(cacheConfig())
			if err != nil {
				return fmt.Errorf("unable to open audio cache: %w", err)
			}
			defer mgr.Close() //nolint:errcheck
			if err := mgr.Clear(); err != nil {
				return fmt.Errorf("unable to clear audio cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	cacheWarmCmd = &cobra.Command{
		Use:   "warm URL...",
		Short: "Download clips into the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cacheApp()
			if err != nil {
				return err
			}
			defer a.close()

			urls := a.cacheKeys(args)
			if err := a.fetcher.Prefetch(cmd.Context(), urls, cacheJobs); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %d clips\n", len(urls))
			return nil
		},
	}

	cacheForgetCmd = &cobra.Command{
		Use:     "forget URL...",
		Aliases: []string{"rm"},
		Short:   "Drop clips from the cache",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cacheApp()
			if err != nil {
				return err
			}
			defer a.close()

			for _, u := range a.cacheKeys(args) {
				if err := a.cache.Delete(u); err != nil {
					return fmt.Errorf("unable to drop %s: %w", u, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dropped %s\n", dim(u))
			}
			return nil
		},
	}
)

func init() {
	cacheCmd.PersistentFlags().StringVarP(&cacheProvider, "provider", "P", "", "edge or azure (default from config)")
	cacheWarmCmd.Flags().IntVarP(&cacheJobs, "jobs", "j", 4, "parallel downloads")

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheWarmCmd, cacheForgetCmd)
}

func cacheApp() (*app, error) {
	kind, err := providerArg(nonEmpty(cacheProvider))
	if err != nil {
		return nil, err
	}
	return newApp(kind)
}

// cacheKeys resolves clip references against the provider backend, the way
// the studio does before fetching.
func (a *app) cacheKeys(refs []string) []string {
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = a.client.ResolveURL(ref)
	}
	return keys
}

func writeCacheStats(w io.Writer, s cache.ManagerStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "tier\tclips\tsize\tcapacity\thits\n")
	fmt.Fprintf(tw, "memory\t%d\t%s\t%s\t%d\n", s.Memory.ItemCount,
		humanize.Bytes(uint64(s.Memory.Size)), humanize.Bytes(uint64(s.Memory.Capacity)), s.MemoryHits)
	if s.Disk.Capacity > 0 || s.Disk.ItemCount > 0 {
		fmt.Fprintf(tw, "disk\t%d\t%s\t%s\t%d\n", s.Disk.ItemCount,
			humanize.Bytes(uint64(s.Disk.Size)), humanize.Bytes(uint64(s.Disk.Capacity)), s.DiskHits)
	} else {
		fmt.Fprintf(tw, "disk\t-\t-\t-\t-\n")
	}
	fmt.Fprintf(tw, "misses\t%d\t\t\t\n", s.Misses)
	return tw.Flush()
}
