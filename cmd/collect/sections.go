package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/LJTian/hotcache/internal/storage"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List every cached section with its freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()
		return listSections(cmd.Context(), env.store, env.cfg.FreshnessWindow(), time.Now(), cmd.OutOrStdout())
	},
}

type sectionLister interface {
	ReadAll(ctx context.Context) (map[string]*storage.Section, error)
}

func listSections(ctx context.Context, store sectionLister, window time.Duration, now time.Time, out io.Writer) error {
	all, err := store.ReadAll(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tUPDATED\tITEMS\tFRESH")
	for _, k := range keys {
		sec := all[k]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", k, sec.UpdatedAt, len(sec.Data), sec.FreshAt(now, window))
	}
	return tw.Flush()
}
