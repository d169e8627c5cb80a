package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"enumgen/internal/abicache"
	"enumgen/internal/driver"
)

// driverOptions collects the persistent flags shared by every command that
// runs the layout pipeline.
func driverOptions(cmd *cobra.Command, withCache bool) (driver.Options, error) {
	pf := cmd.Root().PersistentFlags()
	var opts driver.Options
	var err error

	if opts.MaxDiagnostics, err = pf.GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if opts.Jobs, err = pf.GetInt("jobs"); err != nil {
		return opts, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if opts.Verify, err = pf.GetBool("verify"); err != nil {
		return opts, fmt.Errorf("failed to get verify flag: %w", err)
	}
	if opts.AllowNonFixedMultiPayload, err = pf.GetBool("allow-nonfixed-multipayload"); err != nil {
		return opts, fmt.Errorf("failed to get allow-nonfixed-multipayload flag: %w", err)
	}
	if opts.Timings, err = pf.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}

	if withCache {
		if opts.Cache, err = openCache(pf); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// openCache opens the cache named by --cache; nil when the flag is unset.
func openCache(pf *pflag.FlagSet) (*abicache.Cache, error) {
	dir, err := pf.GetString("cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache flag: %w", err)
	}
	switch dir {
	case "":
		return nil, nil
	case "auto":
		dir = ""
	}
	cache, err := abicache.Open(dir, "enumgen")
	if err != nil {
		return nil, fmt.Errorf("failed to open layout cache: %w", err)
	}
	return cache, nil
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && q
}
