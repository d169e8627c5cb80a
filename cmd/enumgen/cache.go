package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persisted layout cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := openCache(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if cache == nil {
				return errors.New("no cache configured (pass --cache DIR or --cache auto)")
			}
			fmt.Fprintln(cmd.OutOrStdout(), cache.Dir())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove every persisted layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := openCache(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if cache == nil {
				return errors.New("no cache configured (pass --cache DIR or --cache auto)")
			}
			if err := cache.DropAll(); err != nil {
				return fmt.Errorf("failed to clean %q: %w", cache.Dir(), err)
			}
			if !quiet(cmd) {
				fmt.Fprintf(cmd.OutOrStdout(), "removed layouts under %s\n", cache.Dir())
			}
			return nil
		},
	})
	return cmd
}
