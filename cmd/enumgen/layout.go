package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"enumgen/internal/abicache"
	"enumgen/internal/diag"
	"enumgen/internal/diagfmt"
	"enumgen/internal/driver"
	"enumgen/internal/report"
	"enumgen/internal/source"
)

type layoutFlags struct {
	format    string
	patterns  bool
	withNotes bool
	fullPath  bool
}

func newLayoutCmd() *cobra.Command {
	var flags layoutFlags
	cmd := &cobra.Command{
		Use:   "layout [flags] <file.toml>...",
		Short: "Compute and print the layout of every declared enum",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd, args, flags)
		},
	}
	cmd.Flags().StringVar(&flags.format, "format", "pretty", "output format (pretty|json|short)")
	cmd.Flags().BoolVar(&flags.patterns, "patterns", false, "list the cases and storage patterns of every enum")
	cmd.Flags().BoolVar(&flags.withNotes, "with-notes", true, "include diagnostic notes in output")
	cmd.Flags().BoolVar(&flags.fullPath, "fullpath", false, "emit absolute file paths in output")
	return cmd
}

// layoutJSON is the per-file JSON output of the layout command.
type layoutJSON struct {
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
	Layouts     []abicache.Record         `json:"layouts"`
	Cached      bool                      `json:"cached,omitempty"`
}

func runLayout(cmd *cobra.Command, args []string, flags layoutFlags) error {
	switch flags.format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unknown format: %s", flags.format)
	}

	opts, err := driverOptions(cmd, true)
	if err != nil {
		return err
	}
	fs, results, err := driver.LayoutFiles(cmd.Context(), args, opts)
	if err != nil {
		return fmt.Errorf("layout failed: %w", err)
	}

	pathMode := diagfmt.PathModeAuto
	if flags.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	out := cmd.OutOrStdout()
	failed := false
	for _, r := range results {
		r.Bag.Sort()
		if r.Bag.HasErrors() {
			failed = true
		}
	}

	switch flags.format {
	case "pretty":
		prettyOpts := diagfmt.PrettyOpts{Color: useColor(), Context: 2, PathMode: pathMode, ShowNotes: flags.withNotes}
		tableOpts := report.Options{Color: useColor(), Width: terminalWidth(), Patterns: flags.patterns}
		for idx, r := range results {
			if idx > 0 {
				fmt.Fprintln(out)
			}
			if err := printLayoutPretty(out, fs, r, prettyOpts, tableOpts, quiet(cmd)); err != nil {
				return err
			}
		}
	case "short":
		var all []diag.Diagnostic
		for _, r := range results {
			all = append(all, r.Bag.Items()...)
		}
		if s := diag.FormatGoldenDiagnostics(all, fs, "", flags.withNotes); s != "" {
			fmt.Fprintln(out, s)
		}
	case "json":
		jsonOpts := diagfmt.JSONOpts{IncludePositions: true, PathMode: pathMode, IncludeNotes: flags.withNotes}
		output := make(map[string]layoutJSON, len(results))
		for _, r := range results {
			records := r.Records
			if records == nil {
				records = []abicache.Record{}
			}
			output[r.Path] = layoutJSON{
				Diagnostics: diagfmt.BuildDiagnosticsOutput(r.Bag, fs, jsonOpts),
				Layouts:     records,
				Cached:      r.Cached,
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output); err != nil {
			return fmt.Errorf("failed to encode layout output: %w", err)
		}
	}

	if failed {
		return errFailed
	}
	return nil
}

func printLayoutPretty(w io.Writer, fs *source.FileSet, r driver.FileResult, prettyOpts diagfmt.PrettyOpts, tableOpts report.Options, quiet bool) error {
	diagfmt.Pretty(w, r.Bag, fs, prettyOpts)
	if r.Unit == nil {
		return nil
	}
	title := r.Path
	if r.Cached && !quiet {
		title += " (cached)"
	}
	if err := report.Render(w, title, r.Records, tableOpts); err != nil {
		return err
	}
	if r.Timing != nil && !quiet {
		fmt.Fprint(w, r.Timing.Summary())
	}
	return nil
}
