package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ProZsolt/salt"
	"github.com/ProZsolt/salt/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "salt",
	Short:        "salt downloads the invoices of a Salt mobile account.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), configPath)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.cfg", "INI file holding the credentials and options")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("unable to read config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	setupLogging(level)

	if cfg.Trace {
		shutdown, err := setupTracing()
		if err != nil {
			return fmt.Errorf("unable to set up tracing: %w", err)
		}
		defer shutdown(ctx)
	}

	srv, err := salt.NewService(salt.ServiceOptions{
		BaseURL:          cfg.BaseURL,
		LoginURL:         cfg.LoginURL,
		Timeout:          cfg.Timeout,
		CloudflareBypass: cfg.CloudflareBypass,
	})
	if err != nil {
		return err
	}

	slog.Info("logging in", "username", cfg.Username)
	if err = srv.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	if !cfg.SkipLoginCheck {
		if err = srv.VerifyLogin(ctx); err != nil {
			return fmt.Errorf("login error: %w", err)
		}
	}

	slog.Info("get bills")
	bills, err := srv.Bills(ctx)
	if err != nil {
		return fmt.Errorf("unable to get bills: %w", err)
	}
	if len(bills) == 0 {
		slog.Warn("unable to find any bill")
		return nil
	}
	printBills(os.Stdout, bills)

	selected, err := selectBills(cfg, bills)
	if err != nil {
		return err
	}

	err = os.MkdirAll(cfg.OutputDir, 0755)
	if err != nil {
		return fmt.Errorf("unable to create directory %s: %w", cfg.OutputDir, err)
	}

	for i, bill := range selected {
		slog.Info("downloading bill",
			"n", i+1,
			"of", len(selected),
			"period_start", bill.Period.Start,
			"period_end", bill.Period.End,
		)
		pdfPath := filepath.Join(cfg.OutputDir, bill.FileName())
		if err = srv.DownloadBillFile(ctx, bill, pdfPath); err != nil {
			return fmt.Errorf("download error: %w", err)
		}

		if cfg.SkipPaymentDetail {
			continue
		}
		detailPath := filepath.Join(cfg.OutputDir, bill.PaymentDetailFileName())
		err = salt.ExtractPaymentDetail(bill, pdfPath, detailPath, salt.DefaultPageSelector)
		if err != nil {
			return fmt.Errorf("payment detail error for %s: %w", bill.FileName(), err)
		}
		slog.Info("payment detail extracted", "file", detailPath)
	}

	slog.Info("done", "bills", len(selected))
	return nil
}

// selectBills applies the month or since filter of the config.
func selectBills(cfg config.Config, bills salt.Bills) (salt.Bills, error) {
	year, month, ok, err := cfg.SelectedMonth()
	if err != nil {
		return nil, err
	}
	if ok {
		bill, found := bills.ByMonth(year, month)
		if !found {
			return nil, fmt.Errorf("no bill for %d-%d", year, int(month))
		}
		return salt.Bills{bill}, nil
	}

	since, err := cfg.SinceDate()
	if err != nil {
		return nil, err
	}
	if since.IsValid() {
		return bills.Since(since), nil
	}
	return bills, nil
}
