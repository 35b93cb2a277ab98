// Command purlin validates residential construction designs: it loads
// a part-template library, a design document and a regulatory rule
// set, runs the solve pipeline, and reports findings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/purlin/pkg/bom"
	"github.com/chazu/purlin/pkg/library"
	"github.com/chazu/purlin/pkg/objio"
	"github.com/chazu/purlin/pkg/pipeline"
	"github.com/chazu/purlin/pkg/rules"
	"github.com/chazu/purlin/pkg/solver"
)

var (
	flagVerbose  bool
	flagLibrary  string
	flagDesign   string
	flagRules    string
	flagRegistry string
	flagStrict   bool
)

func newLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if flagVerbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func main() {
	root := &cobra.Command{
		Use:           "purlin",
		Short:         "Parametric construction design validation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSolveCmd(), newBOMCmd(), newFmtCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "purlin: %v\n", err)
		os.Exit(1)
	}
}

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run the full constraint pipeline over a design",
		RunE:  runSolve,
	}
	cmd.Flags().StringVarP(&flagLibrary, "library", "l", "", "template library YAML (required)")
	cmd.Flags().StringVarP(&flagDesign, "design", "d", "", "design document YAML (required)")
	cmd.Flags().StringVarP(&flagRules, "rules", "r", "", "regulatory rule set YAML (required)")
	cmd.Flags().StringVar(&flagRegistry, "pair-rules", "", "additional allowed-intersection YAML")
	cmd.Flags().BoolVar(&flagStrict, "strict-connections", false, "require every connection point to match")
	for _, name := range []string{"library", "design", "rules"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func runSolve(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	lib, err := library.Load(flagLibrary)
	if err != nil {
		return err
	}
	d, err := library.LoadDesign(flagDesign, lib)
	if err != nil {
		return err
	}
	rs, err := rules.Load(flagRules)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithConnectionConfig(solver.ConnectionConfig{RequireAllPoints: flagStrict}),
	}
	if flagRegistry != "" {
		reg := solver.NewPairRules()
		if err := solver.LoadPairRules(reg, flagRegistry); err != nil {
			return err
		}
		opts = append(opts, pipeline.WithPairRules(reg))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.New(opts...).Solve(ctx, d, rs)
	if report != nil {
		for _, f := range report.Findings {
			fmt.Println(f)
		}
	}
	if err != nil {
		return err
	}

	switch {
	case report.Status == pipeline.StatusCancelled:
		fmt.Println("solve cancelled")
		os.Exit(2)
	case !report.Success:
		fmt.Printf("design %q is invalid: %d findings\n", d.Name, len(report.Findings))
		os.Exit(1)
	default:
		fmt.Printf("design %q is valid (%d connection matches)\n", d.Name, len(report.Matches))
	}
	return nil
}

func newBOMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bom",
		Short: "Derive a bill of materials from a design",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := library.Load(flagLibrary)
			if err != nil {
				return err
			}
			d, err := library.LoadDesign(flagDesign, lib)
			if err != nil {
				return err
			}
			for _, li := range bom.Derive(d) {
				fmt.Printf("%-40s x%-4d stock %.0f\n", li.Key(), li.Count, li.StockLength)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagLibrary, "library", "l", "", "template library YAML (required)")
	cmd.Flags().StringVarP(&flagDesign, "design", "d", "", "design document YAML (required)")
	for _, name := range []string{"library", "design"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func newFmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmt <file.obj>",
		Short: "Round-trip a part file through the annotated OBJ codec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := objio.Decode(f)
			if err != nil {
				return err
			}
			return objio.Encode(os.Stdout, doc)
		},
	}
}
