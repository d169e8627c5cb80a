package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"enumgen/internal/diag"
	"enumgen/internal/diagfmt"
	"enumgen/internal/driver"
	"enumgen/internal/source"
)

type emitFlags struct {
	enum     string
	ops      []string
	caseName string
}

func newEmitCmd() *cobra.Command {
	var flags emitFlags
	cmd := &cobra.Command{
		Use:   "emit [flags] <file.toml>...",
		Short: "Print the IR of value operations of one enum",
		Long: `Lay out the declaration files and print the IR of the requested value
operations of the enum named by --enum. Files are searched in order; the first
one declaring the enum wins.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(cmd, args, flags)
		},
	}
	cmd.Flags().StringVar(&flags.enum, "enum", "", "enum to emit code for")
	cmd.Flags().StringSliceVar(&flags.ops, "op", []string{string(driver.OpSwitch)}, "operations to emit (copy|destroy|switch|inject|project|pack|unpack|init-metadata)")
	cmd.Flags().StringVar(&flags.caseName, "case", "", "case injected or projected")
	_ = cmd.MarkFlagRequired("enum")
	return cmd
}

func runEmit(cmd *cobra.Command, args []string, flags emitFlags) error {
	ops := make([]driver.Op, 0, len(flags.ops))
	for _, s := range flags.ops {
		op, err := driver.ParseOp(s)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	// Emission needs live strategies, which the cache does not keep.
	opts, err := driverOptions(cmd, false)
	if err != nil {
		return err
	}
	fs, results, err := driver.LayoutFiles(cmd.Context(), args, opts)
	if err != nil {
		return fmt.Errorf("layout failed: %w", err)
	}

	out := cmd.OutOrStdout()
	prettyOpts := diagfmt.PrettyOpts{Color: useColor(), Context: 2, ShowNotes: true}

	var target *driver.FileResult
	for i := range results {
		if u := results[i].Unit; u != nil {
			if _, ok := u.Enum(flags.enum); ok {
				target = &results[i]
				break
			}
		}
	}
	if target == nil {
		bag := diag.NewBag(0)
		for _, r := range results {
			bag.Merge(r.Bag)
		}
		bag.Add(diag.NewError(diag.DeclUnknownEnum, source.Span{File: results[0].FileID},
			fmt.Sprintf("enum %s is not declared in any input file", flags.enum)))
		bag.Sort()
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, fs, prettyOpts)
		return errFailed
	}

	target.Bag.Sort()
	if target.Bag.HasErrors() || (!quiet(cmd) && target.Bag.Len() > 0) {
		diagfmt.Pretty(cmd.ErrOrStderr(), target.Bag, fs, prettyOpts)
	}

	decl, _ := target.Unit.Enum(flags.enum)
	if target.Context == nil {
		return errFailed
	}
	s, ok := target.Context.Strategy(decl.ID)
	if !ok {
		if s, err = target.Context.ConvertEnumType(decl.ID); err != nil {
			// already reported against the declaration
			return errFailed
		}
	}

	fmt.Fprintf(out, "; %s\n", target.Unit.Types.Describe(decl.ID))
	for _, op := range ops {
		f, err := driver.Emit(s, driver.EmitRequest{Op: op, Case: flags.caseName})
		if err != nil {
			return fmt.Errorf("%s %s: %w", flags.enum, op, err)
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, f.String())
	}
	return nil
}
