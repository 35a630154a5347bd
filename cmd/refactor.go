package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/observability"
	"github.com/xkilldash9x/synapse/internal/pipeline"
	"github.com/xkilldash9x/synapse/internal/service"
)

// maxInputBytes bounds what the refactor command reads from a file or stdin.
const maxInputBytes = 1 << 20

func newRefactorCmd(opts *rootOptions) *cobra.Command {
	var (
		language  string
		objective string
		asJSON    bool
	)

	refactorCmd := &cobra.Command{
		Use:   "refactor [file|-]",
		Short: "Refactor one file (or stdin) and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			code, err := readSource(source, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if strings.TrimSpace(code) == "" {
				return errors.New("no code to refactor")
			}
			if language == "" && source != "-" {
				language = filepath.Base(source)
			}

			components, err := opts.factory.Create(ctx, opts.cfg, logger, service.Options{})
			if err != nil {
				return fmt.Errorf("failed to initialize pipeline: %w", err)
			}
			defer func() { _ = components.Shutdown(context.Background()) }()

			result := components.Pipeline.Run(ctx, pipeline.Request{
				Code:      code,
				Language:  language,
				Objective: objective,
			})
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeText(cmd.OutOrStdout(), result)
		},
	}

	flags := refactorCmd.Flags()
	flags.StringVar(&language, "language", "", "language profile (default: detected from file name or content)")
	flags.StringVar(&objective, "objective", "", "refactor objective, e.g. performance or clean-code")
	flags.BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return refactorCmd
}

func readSource(source string, stdin io.Reader) (string, error) {
	var r io.Reader
	if source == "-" {
		r = stdin
	} else {
		f, err := os.Open(source)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", source, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) > maxInputBytes {
		return "", fmt.Errorf("input exceeds %d bytes", maxInputBytes)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, result *schemas.Result) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeText(w io.Writer, result *schemas.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis: %s", result.AnalysisType)
	if result.SafetyStatus != "" {
		fmt.Fprintf(&b, " (%s)", result.SafetyStatus)
	}
	b.WriteString("\n")
	if smell := result.Smell(); smell != "" {
		fmt.Fprintf(&b, "Smell: %s\n", smell)
	}
	fmt.Fprintf(&b, "Complexity: %g -> %g  Maintainability: %s  Risk: %g\n",
		result.Metrics.ComplexityBefore, result.Metrics.ComplexityAfter,
		result.Metrics.MaintainabilityRating, result.Metrics.RiskScore)
	fmt.Fprintf(&b, "\n%s\n\n", result.Explanation)
	b.WriteString(result.RefactoredCode)
	if !strings.HasSuffix(result.RefactoredCode, "\n") {
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
