package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LJTian/hotcache/internal/scheduler"
	"github.com/LJTian/hotcache/internal/section"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write one sample record into every section",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()
		return seed(cmd.Context(), env.store, cmd.OutOrStdout())
	},
}

func seed(ctx context.Context, w scheduler.SectionWriter, out io.Writer) error {
	samples := section.Samples()
	keys := section.Keys()
	sort.Strings(keys)
	results := make([]int, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			sec, err := w.Write(gctx, key, samples[key])
			if err != nil {
				return fmt.Errorf("seed %s: %w", key, err)
			}
			results[i] = len(sec.Data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, key := range keys {
		fmt.Fprintf(out, "%s\t%d\n", key, results[i])
	}
	return nil
}
