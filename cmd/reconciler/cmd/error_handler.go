package cmd

import (
	"fmt"
	"os"
	"strings"

	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if !h.verbose {
		fmt.Fprintf(os.Stderr, "\nRun with --verbose for more detail\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryDecode:
		return `Decode error help:
• Check that the file is a real .xlsx or .xls export, not a renamed PDF or HTML page
• Re-download the statement from the bank's site if the file looks truncated
• Open the file in a spreadsheet application to verify it is readable`

	case errors.CategoryExtract:
		return `Extraction error help:
• Verify the export contains the movement table with date, description and amount columns
• If the bank's headers are unreliable, add its label to --forced-heuristic
• Increase --header-scan-depth if the movement table starts far down the sheet`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required fields have values
• Verify dates use DD/MM/YYYY
• Ensure amounts are positive numbers`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'reconciler reconcile --help' to see all available options
• Try running with default settings first`

	case errors.CategoryStore:
		return `Store error help:
• Verify the database URL and that the database is reachable
• A commit conflict means an invoice was paid by another session; refresh and retry
• Check that the invoices table exists and is accessible`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler reconcile --help' for command-specific help
• Check the documentation for detailed examples`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}
