package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"deskglue/internal/config"
	"deskglue/internal/domain"
	"deskglue/internal/logging"
	"deskglue/internal/ui"
	"deskglue/internal/ui/services/visibility"
	"deskglue/internal/ui/views"
)

// searchCmd runs a single customer lookup
var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Search customers once and print the matches",
	Long: `Runs one lookup against the configured backend, without debouncing,
and prints id, name, code, place and phone for every match.

Example:
  deskglue search john kochi`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// filtersCmd prints the dependent filters for an AMC status
var filtersCmd = &cobra.Command{
	Use:   "filters [status]",
	Short: "Show which filters are visible for a status",
	Long: `Prints the dependent filters shown for the given value of the
controlling field. Without an argument every configured value is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFilters,
}

// reportCmd prints the customer AMC report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the customer AMC report",
	Long: `Runs the Customer - AMC Details report against the configured backend.

Month and year only apply when the configured rules show them for the
chosen status, the same as in the filter panel.

Example:
  deskglue report --status "Upcoming Expiry" --month March --year 2026`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

// initCmd writes a default configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runInit,
}

var (
	initForce     bool
	reportFilters domain.ReportFilters
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")

	reportCmd.Flags().StringVarP(&reportFilters.AMCStatus, "status", "s", domain.AMCAll, "AMC status")
	reportCmd.Flags().StringVar(&reportFilters.Customer, "customer", "", "customer name")
	reportCmd.Flags().StringVar(&reportFilters.ExpiryMonth, "month", "", "expiry month (January..December)")
	reportCmd.Flags().StringVar(&reportFilters.ExpiryYear, "year", "", "expiry year")
}

func cliLogger() *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return logging.NewWriter(os.Stderr, level)
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := cliLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout.Std())
	defer cancel()

	query := strings.Join(args, " ")
	results, err := backend.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No customers found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCODE\tPLACE\tPHONE")
	for _, r := range results {
		code, _ := r.SecondaryField("code")
		place, _ := r.SecondaryField("place")
		phone, _ := r.SecondaryField("phone")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.DisplayName, code, place, phone)
	}
	return w.Flush()
}

func runFilters(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rules, err := visibility.NewRuleSet(cfg.Visibility.FieldRules())
	if err != nil {
		return err
	}

	values := rules.Values()
	if len(args) == 1 {
		values = args
	}

	out := cmd.OutOrStdout()
	for _, v := range values {
		visible := rules.VisibleFields(v)
		shown := "(none)"
		if len(visible) > 0 {
			shown = strings.Join(visible, ", ")
		}
		fmt.Fprintf(out, "%s = %q: %s\n", cfg.Visibility.ControllingField, v, shown)
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	logger := cliLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rules, err := visibility.NewRuleSet(cfg.Visibility.FieldRules())
	if err != nil {
		return err
	}

	filters := reportFilters
	if filters.ExpiryMonth != "" && domain.MonthNumber(filters.ExpiryMonth) == 0 {
		return fmt.Errorf("unknown month %q", filters.ExpiryMonth)
	}
	// hidden filters never apply
	for field, value := range map[string]*string{ui.FieldMonth: &filters.ExpiryMonth, ui.FieldYear: &filters.ExpiryYear} {
		if *value != "" && rules.Has(field) && !rules.IsVisible(filters.AMCStatus, field) {
			logger.Warn("filter hidden for status, ignoring",
				zap.String("field", field),
				zap.String("status", filters.AMCStatus))
			*value = ""
		}
	}

	backend, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout.Std())
	defer cancel()

	rows, err := backend.AMCReport(ctx, filters)
	if err != nil {
		return fmt.Errorf("amc report: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, views.MsgNoReportRows)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tCUSTOMER\tAMC END\tADDRESS\tPHONE\tPRODUCT")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.CustomerCode, r.CustomerName, r.AMCEndDate, r.Address, r.Phone, r.Product)
	}
	return w.Flush()
}

func runInit(cmd *cobra.Command, args []string) error {
	svc := config.NewConfigService(configPath)
	if _, err := os.Stat(svc.Path()); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", svc.Path())
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := svc.Save(config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", svc.Path())
	return nil
}
