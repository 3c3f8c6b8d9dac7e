package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"tipnet/adapters/excel"
	"tipnet/adapters/postgres"
	"tipnet/adapters/stats/estimator"
	"tipnet/adapters/stats/oracle"
	"tipnet/app"
	"tipnet/domain/network"
	"tipnet/internal"
	"tipnet/internal/config"
	"tipnet/internal/migration"
	"tipnet/internal/testkit"
	"tipnet/ports"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tipnet",
		Short:         "Discover time-lagged causal networks in multivariate time series",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newDiscoverCmd(),
		newInfoCmd(),
		newProfileCmd(),
		newShowCmd(),
		newSimulateCmd(),
	)
	return rootCmd
}

func newDiscoverCmd() *cobra.Command {
	// TIPNET_* variables set the defaults; flags override them
	params, cfg, envErr := config.LoadDiscovery()
	var (
		test, binning string
		input         = excel.DefaultReaderConfig()
		store, reuse  bool
	)

	cmd := &cobra.Command{
		Use:   "discover [file]",
		Short: "Run causal network discovery on a CSV or XLSX file",
		Long: `Run causal network discovery on a CSV or XLSX file whose first row names
the variables and whose rows are consecutive time steps.

With --store the run is saved to the database named by DATABASE_URL.

Example: tipnet discover weather.csv --taumax 6 --bins 5 --alpha 0.01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			var err error
			if cfg.Test, err = oracle.ParseTestKind(test); err != nil {
				return err
			}
			if cfg.Binning, err = estimator.ParseBinning(binning); err != nil {
				return err
			}

			var repo ports.NetworkRepository
			if store || reuse {
				db, err := openDatabase(cmd.Context())
				if err != nil {
					return err
				}
				defer db.Close()
				repo = postgres.NewNetworkRepository(db)
			}

			run, err := app.NewDiscoveryService(repo, nil, internal.DefaultLogger).Discover(cmd.Context(), app.DiscoveryRequest{
				Reader: excel.NewDataReader(args[0], input),
				Params: params,
				Oracle: cfg,
				Store:  store,
				Reuse:  reuse,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				*network.Run
				Parents map[string][]string `json:"parents"`
			}{run, run.NamedParents()})
		},
	}

	f := cmd.Flags()
	f.IntVar(&params.DTau, "dtau", params.DTau, "Consecutive lags that must agree for convergence")
	f.IntVar(&params.TauMax, "taumax", params.TauMax, "Maximum lag (hard cutoff)")
	f.IntVar(&params.TauMin, "taumin", params.TauMin, "Minimum lag before convergence is checked")
	f.BoolVar(&params.Deep, "deep", params.Deep, "Run the extra conditional test while pruning")
	f.IntVar(&cfg.Bins, "bins", cfg.Bins, "Bins per variable when discretizing")
	f.StringVar(&binning, "binning", string(cfg.Binning), "Binning method: equal_frequency|equal_width")
	f.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "Significance level of the independence tests")
	f.StringVar(&test, "test", string(cfg.Test), "Independence test: gtest|shuffle")
	f.IntVar(&cfg.Permutations, "permutations", cfg.Permutations, "Permutations for the shuffle test")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for the shuffle test")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent permutations for the shuffle test")
	bindReaderFlags(cmd, &input)
	f.BoolVar(&store, "store", false, "Store the run in the database")
	f.BoolVar(&reuse, "reuse", false, "Return a stored run for identical data and settings")
	return cmd
}

// bindReaderFlags registers the flags that control how a data file is read.
func bindReaderFlags(cmd *cobra.Command, cfg *excel.ReaderConfig) {
	f := cmd.Flags()
	f.StringSliceVar(&cfg.Columns, "columns", nil, "Variables to use, by header name (default: all)")
	f.StringVar(&cfg.Sheet, "sheet", cfg.Sheet, "Sheet to read from XLSX files")
	f.BoolVar(&cfg.DropIncomplete, "drop-incomplete", false, "Skip rows with blank or non-numeric cells")
	f.StringVar(&cfg.TimeColumn, "time-column", "", "Timestamp column to order rows by")
	f.StringVar(&cfg.Interval, "interval", "", "Resample onto an hour|day|week|month grid (needs --time-column)")
	f.StringVar(&cfg.Aggregate, "aggregate", cfg.Aggregate, "Resampling aggregate: mean|sum|count|max|min|last")
	f.StringVar(&cfg.Fill, "fill", cfg.Fill, "Fill for empty periods: zero|forward|mean")
}

func newProfileCmd() *cobra.Command {
	input := excel.DefaultReaderConfig()
	cmd := &cobra.Command{
		Use:   "profile [file]",
		Short: "Summarize each variable of a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.ProfileObservations(cmd.Context(), excel.NewDataReader(args[0], input))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	bindReaderFlags(cmd, &input)
	return cmd
}

func newInfoCmd() *cobra.Command {
	req := app.InfoRequest{Bins: 8, Base: 2}

	cmd := &cobra.Command{
		Use:   "info [file] [column...]",
		Short: "Print information quantities of one to three columns",
		Long: `Print entropies, mutual information and the redundancy/synergy/unique
decomposition of one to three columns. With three columns the last one is the
target.

Example: tipnet info weather.csv temp rain --bins 4`,
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			readerCfg := excel.DefaultReaderConfig()
			readerCfg.Columns = args[1:]
			obs, err := excel.NewDataReader(args[0], readerCfg).ReadObservations(cmd.Context())
			if err != nil {
				return err
			}

			_, cols := obs.Data.Dims()
			req.Columns = make([][]float64, cols)
			for j := 0; j < cols; j++ {
				req.Columns[j] = mat.Col(nil, j, obs.Data)
			}
			report, err := app.ComputeInfo(req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().IntVar(&req.Bins, "bins", req.Bins, "Bins per column")
	cmd.Flags().StringVar(&req.Binning, "binning", "equal_frequency", "Binning method: equal_frequency|equal_width")
	cmd.Flags().Float64Var(&req.Base, "base", req.Base, "Logarithm base")
	cmd.Flags().Float64Var(&req.Alpha, "alpha", 0, "Test I(X;Y) at this level (two columns only)")
	return cmd
}

func newShowCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a stored run, or list recent runs without an id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			service := app.NewDiscoveryService(postgres.NewNetworkRepository(db), nil, internal.DefaultLogger)

			if len(args) == 0 {
				runs, err := service.List(cmd.Context(), limit, 0)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), runs)
			}
			run, err := service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), run)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Runs to list")
	return cmd
}

func newSimulateCmd() *cobra.Command {
	var (
		samples int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "simulate [preset]",
		Short: "Write a synthetic time series with a known structure as CSV",
		Long: `Write a synthetic time series with a known lagged structure as CSV.

Presets: white-noise, lagged-copy, chain, common-driver.

Example: tipnet simulate chain --samples 2000 > chain.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := testkit.Preset(args[0], samples, seed)
			if err != nil {
				return err
			}
			gen, err := testkit.NewSeriesGenerator(cfg)
			if err != nil {
				return err
			}
			return testkit.WriteCSV(cmd.OutOrStdout(), gen.Generate())
		},
	}

	cmd.Flags().IntVar(&samples, "samples", 1000, "Number of time steps")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	return cmd
}

func openDatabase(ctx context.Context) (*sqlx.DB, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for stored runs")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
