// cmd/facility-audit/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/care-data/facility-audit/pkg/config"
	"github.com/care-data/facility-audit/pkg/correct"
	"github.com/care-data/facility-audit/pkg/dataset"
	"github.com/care-data/facility-audit/pkg/detect"
	"github.com/care-data/facility-audit/pkg/evaluate"
	"github.com/care-data/facility-audit/pkg/generate"
	"github.com/care-data/facility-audit/pkg/llm"
)

var (
	cfg     *config.Config
	logger  *zap.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "facility-audit",
	Short: "Detect and correct errors in healthcare facility datasets",
	Long: `facility-audit validates tabular healthcare facility data row by row
using a local language model plus deterministic field rules, corrects the
rows that were flagged, and scores both passes against ground truth.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine; the environment itself may be set.
		_ = godotenv.Load()

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err = buildLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return zapCfg.Build()
}

var (
	detectInput  string
	detectOutput string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Analyze a CSV file row by row and write a detection report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(detectInput)
		if err != nil {
			return err
		}
		ds.Limit(cfg.MaxRows)

		client := llm.NewClient(cfg.Model, cfg.RequestDelay, logger)
		detector := detect.NewDetector(client, cfg, logger)

		report, err := detector.Run(cmd.Context(), ds)
		if err != nil {
			return err
		}

		if err := detect.SaveReport(report, detectOutput); err != nil {
			return err
		}

		logger.Info("Detection report written",
			zap.String("path", detectOutput),
			zap.Int("rowsWithErrors", report.Summary.RowsWithErrors),
			zap.Float64("errorRate", report.Summary.ErrorRate))
		return nil
	},
}

var (
	correctInput  string
	correctReport string
	correctOutput string
)

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Correct the rows a detection report flagged",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(correctInput)
		if err != nil {
			return err
		}

		report, err := detect.LoadReport(correctReport)
		if err != nil {
			return err
		}

		// The fixed request delay paces the sequential detection pass only;
		// the correction pool is already bounded by its worker count.
		client := llm.NewClient(cfg.Model, 0, logger)
		corrector := correct.NewCorrector(client, cfg, logger)

		corrected, summary, err := corrector.Run(cmd.Context(), ds, report, correctInput)
		if err != nil {
			return err
		}

		output := correctOutput
		if output == "" {
			output = strings.TrimSuffix(correctInput, ".csv") + "_corrected.csv"
		}
		if err := corrected.Save(output); err != nil {
			return err
		}

		summaryPath := strings.TrimSuffix(output, ".csv") + "_corrections.json"
		if err := correct.SaveSummary(summary, summaryPath); err != nil {
			return err
		}

		logger.Info("Corrected dataset written",
			zap.String("csv", output),
			zap.String("corrections", summaryPath),
			zap.Int("rowsCorrected", summary.Metadata.RowsCorrected),
			zap.Int("totalCorrections", summary.Metadata.TotalCorrections))
		return nil
	},
}

var (
	generateInput  string
	generateOutput string
	generateRate   float64
	generateSeed   int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Corrupt a clean CSV file with synthetic errors for benchmarking",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(generateInput)
		if err != nil {
			return err
		}

		seed := generateSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		gen := generate.NewGenerator(generateRate, seed, logger)
		corrupted, modified := gen.Apply(ds)

		if err := corrupted.Save(generateOutput); err != nil {
			return err
		}

		logger.Info("Corrupted dataset written",
			zap.String("path", generateOutput),
			zap.Int("rowsModified", len(modified)),
			zap.Int64("seed", seed))
		return nil
	},
}

var (
	evaluateTruth     string
	evaluateReport    string
	evaluateCorrected string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a detection report and corrected CSV against ground truth",
	RunE: func(cmd *cobra.Command, args []string) error {
		truth, err := dataset.Load(evaluateTruth)
		if err != nil {
			return err
		}
		truth.Limit(cfg.MaxRows)

		report, err := detect.LoadReport(evaluateReport)
		if err != nil {
			return err
		}

		corrected, err := dataset.Load(evaluateCorrected)
		if err != nil {
			return err
		}
		corrected.Limit(cfg.MaxRows)

		eval := evaluate.Run(report, corrected, truth)

		out, err := json.MarshalIndent(eval, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		logger.Info("Evaluation completed",
			zap.Float64("precision", eval.Detection.Precision),
			zap.Float64("recall", eval.Detection.Recall),
			zap.Float64("f1", eval.Detection.F1),
			zap.Float64("correctionAccuracy", eval.CorrectionAccuracy))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	detectCmd.Flags().StringVarP(&detectInput, "input", "i", "", "CSV file to analyze")
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "detection_report.json", "path for the detection report")
	_ = detectCmd.MarkFlagRequired("input")

	correctCmd.Flags().StringVarP(&correctInput, "input", "i", "", "CSV file the report was generated from")
	correctCmd.Flags().StringVarP(&correctReport, "report", "r", "", "detection report JSON")
	correctCmd.Flags().StringVarP(&correctOutput, "output", "o", "", "path for the corrected CSV (default <input>_corrected.csv)")
	_ = correctCmd.MarkFlagRequired("input")
	_ = correctCmd.MarkFlagRequired("report")

	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "clean ground-truth CSV")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "path for the corrupted CSV")
	generateCmd.Flags().Float64Var(&generateRate, "rate", 0.3, "fraction of rows to corrupt")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "random seed (0 means time-based)")
	_ = generateCmd.MarkFlagRequired("input")
	_ = generateCmd.MarkFlagRequired("output")

	evaluateCmd.Flags().StringVar(&evaluateTruth, "truth", "", "clean ground-truth CSV")
	evaluateCmd.Flags().StringVar(&evaluateReport, "report", "", "detection report JSON")
	evaluateCmd.Flags().StringVar(&evaluateCorrected, "corrected", "", "corrected CSV")
	_ = evaluateCmd.MarkFlagRequired("truth")
	_ = evaluateCmd.MarkFlagRequired("report")
	_ = evaluateCmd.MarkFlagRequired("corrected")

	rootCmd.AddCommand(detectCmd, correctCmd, generateCmd, evaluateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
