package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/qsimlab/qsim/internal/analysis"
	"github.com/qsimlab/qsim/internal/config"
	"github.com/qsimlab/qsim/internal/ensemble"
	"github.com/qsimlab/qsim/internal/models"
	"github.com/qsimlab/qsim/internal/solver"
	"github.com/qsimlab/qsim/internal/store"
	"github.com/qsimlab/qsim/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	duration   float64
	points     int
	seed       int64
	ntraj      int
	workers    int
	rtol       float64
	atol       float64
	configFile string
	preset     string
	noSave     bool
	live       bool
	outPath    string
	plotWidth  int
	plotHeight int

	// model parameter overrides
	pDelta  float64
	pOmega  float64
	pGamma  float64
	pKappa  float64
	pG      float64
	pLevels int
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:   "qsim",
		Short: "open quantum system simulation lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".qsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "evolve a model deterministically (se or me solver)",
		Args:  cobra.ExactArgs(1),
		RunE:  runModel,
	}
	addRunFlags(runCmd)

	mcCmd := &cobra.Command{
		Use:   "mc [model]",
		Short: "run a Monte Carlo trajectory ensemble",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnsemble,
	}
	addRunFlags(mcCmd)
	mcCmd.Flags().IntVar(&ntraj, "ntraj", config.DefaultNTraj, "number of trajectories")
	mcCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = all cores)")
	mcCmd.Flags().BoolVar(&live, "live", false, "live progress monitor")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 70, "graph width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "graph height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run (json or csv by extension)",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "run.json", "output file (.json or .csv)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s (models: %v)\n", args[0], models.Names())
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range models.Names() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, mcCmd, listCmd, plotCmd, exportCmd, analyzeCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "evolution time")
	cmd.Flags().IntVar(&points, "points", config.DefaultPoints, "output time points")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRTol, "relative tolerance")
	cmd.Flags().Float64Var(&atol, "atol", config.DefaultATol, "absolute tolerance")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip saving the run")
	cmd.Flags().Float64Var(&pDelta, "delta", 0, "energy splitting override")
	cmd.Flags().Float64Var(&pOmega, "omega", 0, "Rabi frequency override")
	cmd.Flags().Float64Var(&pGamma, "gamma", 0, "decay rate override")
	cmd.Flags().Float64Var(&pKappa, "kappa", 0, "dephasing/cavity decay override")
	cmd.Flags().Float64Var(&pG, "g", 0, "coupling strength override")
	cmd.Flags().IntVar(&pLevels, "levels", 0, "cavity truncation override")
}

// buildConfig merges preset, config file and CLI flags, flags winning.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		cfg.Model = model
	}

	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("points") {
		cfg.Points = points
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("ntraj") {
		cfg.NTraj = ntraj
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("rtol") {
		cfg.Tolerances.RTol = rtol
	}
	if cmd.Flags().Changed("atol") {
		cfg.Tolerances.ATol = atol
	}
	for flag, dst := range map[string]*float64{
		"delta": &cfg.Params.Delta,
		"omega": &cfg.Params.Omega,
		"gamma": &cfg.Params.Gamma,
		"kappa": &cfg.Params.Kappa,
		"g":     &cfg.Params.G,
	} {
		if cmd.Flags().Changed(flag) {
			v, err := cmd.Flags().GetFloat64(flag)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
	}
	if cmd.Flags().Changed("levels") {
		cfg.Params.Levels = pLevels
	}
	return cfg, cfg.Validate()
}

// buildModel instantiates a model and applies parameter overrides.
func buildModel(cfg *config.Config) (models.Model, error) {
	m, err := models.ByName(cfg.Model)
	if err != nil {
		return nil, err
	}
	p := cfg.Params
	switch m := m.(type) {
	case *models.DampedQubit:
		if p.Delta != 0 {
			m.Delta = p.Delta
		}
		if p.Gamma != 0 {
			m.Gamma = p.Gamma
		}
	case *models.RabiQubit:
		if p.Omega != 0 {
			m.Omega = p.Omega
		}
		if p.Gamma != 0 {
			m.Gamma = p.Gamma
		}
	case *models.DephasingQubit:
		if p.Delta != 0 {
			m.Delta = p.Delta
		}
		if p.Kappa != 0 {
			m.Kappa = p.Kappa
		}
	case *models.JaynesCummings:
		if p.Delta != 0 {
			m.WQubit = p.Delta
			m.WCavity = p.Delta
		}
		if p.G != 0 {
			m.G = p.G
		}
		if p.Kappa != 0 {
			m.Kappa = p.Kappa
		}
		if p.Gamma != 0 {
			m.Gamma = p.Gamma
		}
		if p.Levels > 1 {
			m.Levels = p.Levels
		}
	}
	return m, nil
}

func solverOptions(cfg *config.Config) solver.Options {
	opts := solver.DefaultOptions()
	opts.RTol = cfg.Tolerances.RTol
	opts.ATol = cfg.Tolerances.ATol
	opts.Logger = log.Logger
	return opts
}

func openStore() (*store.Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return store.Open(filepath.Join(dataDir, "runs.db"))
}

func saveRun(cfg *config.Config, solverName string, series *store.Series) error {
	if noSave {
		return nil
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.SaveRun(context.Background(), store.RunMeta{
		Model:    cfg.Model,
		Solver:   solverName,
		Seed:     cfg.Seed,
		NTraj:    cfg.NTraj,
		Duration: cfg.Duration,
		Points:   cfg.Points,
	}, series)
	if err != nil {
		return err
	}
	log.Info().Int64("run_id", id).Msg("run saved")
	return nil
}

func printSummary(series *store.Series) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "observable\tfinal\tmean\tstddev")
	for k, name := range series.Names {
		re := series.Re[k]
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\n",
			name, re[len(re)-1], stat.Mean(re, nil), stat.StdDev(re, nil))
	}
	w.Flush()
}

func runModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tlist := cfg.TimeGrid()
	eops, names := m.Observables()
	opts := solverOptions(cfg)

	var (
		res        *solver.Result
		solverName = cfg.Solver
	)
	start := time.Now()
	switch cfg.Solver {
	case "se":
		if len(m.Collapse()) > 0 {
			return fmt.Errorf("model %s has collapse operators; use the me solver", cfg.Model)
		}
		res, err = solver.SESolve(ctx, m.Hamiltonian(), m.InitialState(), tlist, eops, opts)
	case "me", "mc":
		// mc configs run deterministically here; use the mc command for
		// the trajectory ensemble.
		solverName = "me"
		res, err = solver.MESolve(ctx, m.Hamiltonian(), m.Collapse(), m.InitialState(), tlist, eops, opts)
	}
	if err != nil {
		return err
	}
	log.Info().
		Str("model", cfg.Model).
		Str("solver", solverName).
		Int("steps", res.Stats.Steps).
		Int("rejected", res.Stats.Rejected).
		Dur("elapsed", time.Since(start)).
		Msg("evolution completed")

	series, err := store.NewSeries(res.Times, names, res.Expect)
	if err != nil {
		return err
	}
	printSummary(series)
	return saveRun(cfg, solverName, series)
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	cfg.Solver = "mc"
	if err := cfg.Validate(); err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tlist := cfg.TimeGrid()
	eops, names := m.Observables()

	opts := ensemble.DefaultOptions()
	opts.NTraj = cfg.NTraj
	opts.Workers = cfg.Workers
	opts.Seed = cfg.Seed
	opts.Solver = solverOptions(cfg)
	opts.Logger = log.Logger

	var (
		events  chan ensemble.Event
		monitor *tea.Program
		monErr  = make(chan error, 1)
	)
	if live {
		events = make(chan ensemble.Event, 256)
		opts.Progress = func(e ensemble.Event) {
			select {
			case events <- e:
			default: // drop rather than stall the workers
			}
		}
		title := fmt.Sprintf("mc %s  (%d trajectories)", cfg.Model, cfg.NTraj)
		monitor = tea.NewProgram(viz.NewMonitor(title, names[0], cfg.NTraj, events, cancel))
		go func() {
			_, err := monitor.Run()
			monErr <- err
		}()
	}

	start := time.Now()
	res, err := ensemble.Run(ctx, m.Hamiltonian(), m.Collapse(), m.InitialState(), tlist, eops, opts)
	if live {
		close(events)
		if merr := <-monErr; merr != nil {
			log.Warn().Err(merr).Msg("monitor exited")
		}
	}
	if err != nil {
		return err
	}
	log.Info().
		Str("model", cfg.Model).
		Int("trajectories", res.Completed).
		Int("failed", res.Failed).
		Int("jumps", res.Jumps).
		Dur("elapsed", time.Since(start)).
		Msg("ensemble completed")

	series, err := store.NewSeries(res.Times, names, res.Mean)
	if err != nil {
		return err
	}
	printSummary(series)
	return saveRun(cfg, "mc", series)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no saved runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tmodel\tsolver\tcreated\tduration\tpoints\tntraj")
	for _, r := range runs {
		trajCol := "-"
		if r.Solver == "mc" {
			trajCol = strconv.Itoa(r.NTraj)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%g\t%d\t%s\n",
			r.ID, r.Model, r.Solver, r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Duration, r.Points, trajCol)
	}
	return w.Flush()
}

func loadRun(id string) (*store.RunMeta, *store.Series, error) {
	runID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid run id: %s", id)
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	ctx := context.Background()
	meta, err := st.LoadRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	series, err := st.LoadSeries(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, series, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, series, err := loadRun(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run %d: %s (%s)\n\n", meta.ID, meta.Model, meta.Solver)
	fmt.Print(viz.PlotSeries(series, plotWidth, plotHeight))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, series, err := loadRun(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run %d: %s (%s)\n", meta.ID, meta.Model, meta.Solver)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "observable\tdominant frequency\tangular")
	for k, name := range series.Names {
		f := analysis.DominantFrequency(series.Times, series.Re[k])
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\n", name, f, 2*math.Pi*f)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, series, err := loadRun(args[0])
	if err != nil {
		return err
	}

	switch filepath.Ext(outPath) {
	case ".csv":
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := store.ExportCSV(f, series); err != nil {
			return err
		}
	case ".json":
		if err := store.ExportJSON(outPath, *meta, series); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format: %s", filepath.Ext(outPath))
	}
	log.Info().Str("path", outPath).Msg("run exported")
	return nil
}
