package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/internal/session"
	"invoice-reconciliation-service/internal/store"
	apperrors "invoice-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	statementFiles  []string
	sourceLabels    []string
	outputFormat    string
	outputFile      string
	databaseURL     string
	pendingFile     string
	commitMatches   bool
	amountTolerance float64
	manualThreshold float64
	headerScanDepth int
	forcedHeuristic []string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match bank statement movements against pending invoices",
	Long: `Reconcile reads one or more bank statement exports, extracts the incoming
transfers, and pairs each one with the pending invoice of matching amount.

Pending invoices come from the configured database, or from a JSON file for
offline dry runs. Without --commit the pairing is only reported; with
--commit every matched invoice is marked paid in one atomic batch.

Examples:
  # Dry run against the database
  reconciler reconcile --statements cartola.xlsx --sources santander

  # Several statements, committing the matches
  reconciler reconcile --statements marzo.xls,abril.xlsx --sources bancoestado,bci --commit

  # Offline dry run with invoices from a JSON file
  reconciler reconcile --statements cartola.xlsx --pending-file invoices.json

  # Custom tolerance and JSON output
  reconciler reconcile --statements cartola.xlsx --amount-tolerance 50 --output-format json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringSliceVarP(&statementFiles, "statements", "s", []string{}, "comma-separated paths to bank statement files (required)")
	reconcileCmd.Flags().StringSliceVar(&sourceLabels, "sources", []string{}, "source label per statement file (default: derived from file name)")

	// Store flags
	reconcileCmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or RECONCILER_DATABASE_URL)")
	reconcileCmd.Flags().StringVar(&pendingFile, "pending-file", "", "JSON file with pending invoices, for offline dry runs")
	reconcileCmd.Flags().BoolVar(&commitMatches, "commit", false, "mark matched invoices as paid")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0, "automatic match tolerance in statement currency")
	reconcileCmd.Flags().Float64Var(&manualThreshold, "manual-threshold", 0, "amount difference below which an invoice ranks as a good manual candidate")

	// Extraction configuration flags
	reconcileCmd.Flags().IntVar(&headerScanDepth, "header-scan-depth", 0, "number of top rows inspected for a header")
	reconcileCmd.Flags().StringSliceVar(&forcedHeuristic, "forced-heuristic", nil, "source labels that always use the heuristic scan")

	reconcileCmd.MarkFlagRequired("statements")

	// Bind flags to viper
	viper.BindPFlag("statements", reconcileCmd.Flags().Lookup("statements"))
	viper.BindPFlag("sources", reconcileCmd.Flags().Lookup("sources"))
	viper.BindPFlag("database-url", reconcileCmd.Flags().Lookup("database-url"))
	viper.BindPFlag("pending-file", reconcileCmd.Flags().Lookup("pending-file"))
	viper.BindPFlag("commit", reconcileCmd.Flags().Lookup("commit"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("manual-threshold", reconcileCmd.Flags().Lookup("manual-threshold"))
	viper.BindPFlag("header-scan-depth", reconcileCmd.Flags().Lookup("header-scan-depth"))
	viper.BindPFlag("forced-heuristic", reconcileCmd.Flags().Lookup("forced-heuristic"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file and env)
	statementFiles = viper.GetStringSlice("statements")
	sourceLabels = viper.GetStringSlice("sources")
	databaseURL = viper.GetString("database-url")
	pendingFile = viper.GetString("pending-file")
	commitMatches = viper.GetBool("commit")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	manualThreshold = viper.GetFloat64("manual-threshold")
	headerScanDepth = viper.GetInt("header-scan-depth")

	if len(statementFiles) == 0 {
		return fmt.Errorf("at least one statement file is required")
	}

	for i, file := range statementFiles {
		if err := validateFileExists(file, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return err
		}
	}

	if databaseURL == "" && pendingFile == "" {
		return fmt.Errorf("either --database-url or --pending-file is required")
	}
	if databaseURL != "" && pendingFile != "" {
		return fmt.Errorf("--database-url and --pending-file are mutually exclusive")
	}
	if commitMatches && pendingFile != "" {
		return fmt.Errorf("--commit requires a database; a pending file is read-only")
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	if amountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}
	if manualThreshold < 0 {
		return fmt.Errorf("manual threshold cannot be negative")
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	// The session runs in a helper so its deferred cleanup completes
	// before any non-zero exit
	exitCode, err := executeReconcile(context.Background(), handler)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// executeReconcile uploads every statement, optionally commits, and renders
// the report. Domain errors are rendered by the handler and surface as an
// exit code; plain errors go back to cobra.
func executeReconcile(ctx context.Context, handler *CLIErrorHandler) (int, error) {
	labels, err := config.DeriveSourceLabels(statementFiles, sourceLabels)
	if err != nil {
		return 0, err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Statements: %s\n", strings.Join(statementFiles, ", "))
		fmt.Fprintf(os.Stderr, "Sources: %s\n", strings.Join(labels, ", "))
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
	}

	extractConfig := config.CreateExtractConfig(headerScanDepth, forcedHeuristic)
	matchConfig := config.CreateMatchConfig(amountTolerance, manualThreshold)
	if err := config.ValidateConfig(extractConfig, matchConfig); err != nil {
		return 0, err
	}

	st, cleanup, err := buildStore(ctx)
	if err != nil {
		return handler.HandleError(err), nil
	}
	defer cleanup()

	sess, err := session.New(ctx, st, config.CreateSessionConfig(extractConfig, matchConfig))
	if err != nil {
		return handler.HandleError(err), nil
	}

	exitCode := 0
	for i, file := range statementFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			return 0, fmt.Errorf("reading statement file %s: %w", file, err)
		}

		result, err := sess.Upload(ctx, data, labels[i])
		if err != nil {
			if !sourceScopedError(err) {
				return handler.HandleError(err), nil
			}
			// An unreadable statement only loses its own upload; the
			// remaining sources still reconcile
			code := handler.HandleError(err)
			if exitCode == 0 {
				exitCode = code
			}
			continue
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "%s: %d movements, %d candidates so far\n",
				labels[i], result.NewMovements, result.Candidates)
		}
	}

	summary := reporter.BuildSummary(sess)

	if commitMatches && len(summary.Candidates) > 0 {
		commitResult, err := sess.Commit(ctx)
		if err != nil {
			return handler.HandleError(err), nil
		}
		fmt.Fprintf(os.Stderr, "Committed %d payments: %s\n",
			commitResult.Committed, strings.Join(commitResult.InvoiceIDs, ", "))
	}

	reportGenerator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to create report generator: %w", err)
	}

	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return 0, fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(summary, output); err != nil {
		return 0, fmt.Errorf("failed to generate report: %w", err)
	}

	return exitCode, nil
}

// sourceScopedError reports whether an upload error concerns only its own
// statement. Decode and extraction failures leave the session untouched, so
// later statements still upload; everything else aborts the run.
func sourceScopedError(err error) bool {
	return apperrors.IsCategory(err, apperrors.CategoryDecode) ||
		apperrors.IsCategory(err, apperrors.CategoryExtract)
}

// buildStore connects the Postgres store, or seeds an in-memory store from
// the pending invoice file for offline dry runs
func buildStore(ctx context.Context) (store.Store, func(), error) {
	if databaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}

	invoices, err := config.LoadPendingInvoices(pendingFile)
	if err != nil {
		return nil, nil, err
	}

	mem := store.NewMemoryStore()
	mem.Seed(invoices)
	return mem, func() {}, nil
}
