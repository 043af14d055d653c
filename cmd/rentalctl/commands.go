package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"ariga.io/atlas-go-sdk/atlasexec"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/commission"
	"github.com/matthewbaird/rentaldesk/internal/config"
	"github.com/matthewbaird/rentaldesk/internal/notify"
	"github.com/matthewbaird/rentaldesk/internal/service"
	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

type globalFlags struct {
	configPath string
	dsn        string
	asOf       string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Rental lifecycle operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default "+config.DefaultFile+")")
	root.PersistentFlags().StringVar(&g.dsn, "dsn", "", "database DSN, overrides the config")
	root.PersistentFlags().StringVar(&g.asOf, "as-of", "", "evaluate as if today were this date (YYYY-MM-DD)")

	root.AddCommand(
		refreshCmd(g),
		alertsCmd(g),
		commissionCmd(),
		migrateCmd(g),
	)
	return root
}

// open loads config, opens the store and wires the services.
func (g *globalFlags) open(ctx context.Context) (*service.Services, func(), error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.dsn != "" {
		cfg.Database.DSN = g.dsn
	}
	clk, err := g.clock(cfg.Clock.Timezone)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.OpenSQLite(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	svc := service.New(db, service.Options{Clock: clk, Notifier: notify.LogNotifier{}})
	return svc, func() { db.Close() }, nil
}

func (g *globalFlags) clock(timezone string) (clock.Clock, error) {
	if g.asOf != "" {
		t, err := timewindow.ParseDate(g.asOf)
		if err != nil {
			return nil, fmt.Errorf("--as-of: %w", err)
		}
		return clock.Fixed(t), nil
	}
	return clock.FromTimezone(timezone)
}

func refreshCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Recompute every rental's status and store the changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.Rentals.RefreshAll(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range res.Changes {
				fmt.Fprintf(out, "%s  %s -> %s\n", c.RentalID, c.From, c.To)
			}
			fmt.Fprintf(out, "%d checked, %d updated\n", res.Checked, res.Updated)
			return nil
		},
	}
}

func alertsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Print the expiration alert feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			feed, err := svc.Alerts.Alerts(cmd.Context())
			if err != nil {
				return err
			}
			if len(feed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No alerts.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tRENTAL\tTENANT\tEND\tDAYS")
			for _, a := range feed {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", a.Level, a.Rental.ID, a.Rental.TenantName,
					timewindow.FormatDate(a.Rental.EndDate), a.RemainingDays)
			}
			return tw.Flush()
		},
	}
}

func commissionCmd() *cobra.Command {
	var (
		price     float64
		sameAgent bool
	)
	cmd := &cobra.Command{
		Use:   "commission",
		Short: "Preview the commission on a sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			if price <= 0 {
				return fmt.Errorf("--price must be greater than zero")
			}
			b := commission.Calculate(price, sameAgent)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sale price:        %.2f\n", b.SalePrice)
			fmt.Fprintf(out, "commission (%.0f%%):  %.2f\n", b.CommissionPercentage, b.TotalCommission)
			fmt.Fprintf(out, "policy:            %s\n", b.Policy())
			fmt.Fprintf(out, "capturing (%.0f%%):  %.2f\n", b.CapturingAgentShare, b.CapturingAgentAmount)
			fmt.Fprintf(out, "selling (%.0f%%):    %.2f\n", b.SellingAgentShare, b.SellingAgentAmount)
			return nil
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "sale price")
	cmd.Flags().BoolVar(&sameAgent, "same-agent", true, "one agent captured and sold the property")
	return cmd
}

func migrateCmd(g *globalFlags) *cobra.Command {
	var (
		schemaFile string
		atlasBin   string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the declarative schema with Atlas",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := g.dsn
			if dsn == "" {
				cfg, err := config.Load(g.configPath)
				if err != nil {
					return err
				}
				dsn = cfg.Database.DSN
			}
			client, err := atlasexec.NewClient(".", atlasBin)
			if err != nil {
				return fmt.Errorf("initializing atlas: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			res, err := client.SchemaApply(ctx, &atlasexec.SchemaApplyParams{
				URL:         atlasURL(dsn),
				To:          "file://" + schemaFile,
				DevURL:      "sqlite://dev?mode=memory",
				DryRun:      dryRun,
				AutoApprove: true,
			})
			if err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}
			out := cmd.OutOrStdout()
			stmts := res.Changes.Applied
			if dryRun {
				stmts = res.Changes.Pending
			}
			if len(stmts) == 0 {
				fmt.Fprintln(out, "Schema is up to date.")
				return nil
			}
			for _, s := range stmts {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "internal/store/schema.sql", "desired schema file")
	cmd.Flags().StringVar(&atlasBin, "atlas", "atlas", "atlas binary")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without applying it")
	return cmd
}

// atlasURL converts a modernc SQLite DSN to an Atlas URL.
func atlasURL(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return dsn
	}
	path := strings.TrimPrefix(dsn, "file:")
	params := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, params = path[:i], path[i+1:]
	}
	url := "sqlite://" + path
	if strings.Contains(params, "mode=memory") {
		url += "?mode=memory"
	}
	return url
}
