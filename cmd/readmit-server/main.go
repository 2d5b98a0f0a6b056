package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/readmit/readmit/internal/config"
	"github.com/readmit/readmit/internal/domain/readmission"
	"github.com/readmit/readmit/internal/engine"
	"github.com/readmit/readmit/internal/platform/baseline"
	"github.com/readmit/readmit/internal/platform/db"
	"github.com/readmit/readmit/migrations"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "readmit-server",
		Short:        "Readmission risk and resource planning API server",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(staffingCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(out)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg, os.Stdout))
		},
	}
}

func openMigrator(ctx context.Context, dir string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        2,
		ApplicationName: "readmit-migrate",
	})
	if err != nil {
		return nil, nil, err
	}
	if dir != "" {
		return db.NewDirMigrator(pool, dir), pool.Close, nil
	}
	return db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := cmd.Context()
			migrator, closeFn, err := openMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	upCmd.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := cmd.Context()
			migrator, closeFn, err := openMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				state, at := "pending", ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, state, at)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema")
	statusCmd.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func staffingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staffing",
		Short: "Offline staffing tools",
	}

	cohortCmd := &cobra.Command{
		Use:   "cohort",
		Short: "Simulate staffing for a cohort of risk-labeled patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return runCohort(f, cmd.OutOrStdout())
		},
	}
	cohortCmd.Flags().String("file", "", `JSON file: {"patients":[{"risk_level":"High"}, ...]}`)
	cohortCmd.MarkFlagRequired("file")
	cmd.AddCommand(cohortCmd)

	baselineCmd := &cobra.Command{
		Use:   "baseline",
		Short: "Summarize a staffing baseline CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			rows, err := baseline.LoadCSV(path)
			if err != nil {
				return err
			}
			return printBaselineSummary(cmd.OutOrStdout(), rows)
		},
	}
	baselineCmd.Flags().String("file", "data/staffing_baseline.csv", "Baseline CSV path")
	cmd.AddCommand(baselineCmd)

	return cmd
}

func runCohort(r io.Reader, w io.Writer) error {
	var req readmission.CohortRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("decode cohort: %w", err)
	}
	svc := readmission.NewService(engine.New(nil, nil, zerolog.Nop()), nil, zerolog.Nop())
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.SimulateCohort(req))
}

type unitSummary struct {
	Unit    string  `json:"unit"`
	Rows    int     `json:"rows"`
	Beds    float64 `json:"mean_beds"`
	Nurses  float64 `json:"mean_nurses"`
	Doctors float64 `json:"mean_doctors"`
}

func summarizeBaseline(rows []engine.BaselineRow) []unitSummary {
	byUnit := map[string]*unitSummary{}
	for _, r := range rows {
		unit := r.Unit
		if unit == "" {
			unit = "(none)"
		}
		s, ok := byUnit[unit]
		if !ok {
			s = &unitSummary{Unit: unit}
			byUnit[unit] = s
		}
		s.Rows++
		s.Beds += r.Beds
		s.Nurses += r.Nurses
		s.Doctors += r.Doctors
	}

	out := make([]unitSummary, 0, len(byUnit))
	for _, s := range byUnit {
		n := float64(s.Rows)
		s.Beds = engine.Round(s.Beds/n, 2)
		s.Nurses = engine.Round(s.Nurses/n, 2)
		s.Doctors = engine.Round(s.Doctors/n, 2)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}

func printBaselineSummary(w io.Writer, rows []engine.BaselineRow) error {
	fmt.Fprintf(w, "Loaded %d baseline row(s).\n", len(rows))
	fmt.Fprintf(w, "%-20s %6s %10s %12s %12s\n", "UNIT", "ROWS", "MEAN BEDS", "MEAN NURSES", "MEAN DOCTORS")
	for _, s := range summarizeBaseline(rows) {
		fmt.Fprintf(w, "%-20s %6d %10.2f %12.2f %12.2f\n", s.Unit, s.Rows, s.Beds, s.Nurses, s.Doctors)
	}
	return nil
}
