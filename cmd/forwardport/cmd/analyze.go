package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/forwardport"
	"github.com/grokify/forwardport/internal/report"
	"github.com/grokify/forwardport/internal/snapshot"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <snapshot>",
	Short: "Report the forward-port status of every PR in a snapshot",
	Long: `Analyze a snapshot written by "forwardport fetch" and report, for every
open PR, whether each later release has a PR introducing the same slices.

The snapshot format is chosen by its extension (.json, .json.gz, .json.zst);
"-" reads plain JSON from stdin.

Text output has one line per PR:

  number forward_ported label base_ref user title forward_ports

Examples:
  forwardport analyze snapshot.json.gz
  forwardport analyze snapshot.json --format json --verbose
  forwardport fetch | forwardport analyze -`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: "+strings.Join(report.Formats, ", "))
	analyzeCmd.Flags().Bool("verbose", false, "Include slices, discontinued slices and comparisons")

	_ = viper.BindPFlag("analyze.format", analyzeCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("analyze.verbose", analyzeCmd.Flags().Lookup("verbose"))
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	formatter, err := report.New(viper.GetString("analyze.format"), viper.GetBool("analyze.verbose"))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	snap, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}

	analysis, err := forwardport.Analyze(snap.Input())
	if err != nil {
		return err
	}

	results := analysis.Results()
	out, err := formatter.Format(results)
	if err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}

	zap.L().Debug("analysis complete", zap.Int("prs", len(results)))
	return writeOutput(cmd.OutOrStdout(), out)
}
