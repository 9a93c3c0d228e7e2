package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/analysis"
	"github.com/san-kum/neutronsim/internal/coils"
	"github.com/san-kum/neutronsim/internal/config"
	"github.com/san-kum/neutronsim/internal/experiment"
	"github.com/san-kum/neutronsim/internal/optim"
	"github.com/san-kum/neutronsim/internal/storage"
	"github.com/san-kum/neutronsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	workers    int
	fieldID    string
	component  string
	useTUI     bool
	scanParams []string
	scanFrom   []float64
	scanTo     []float64
	scanPoints int
	objective  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "neutronsim",
		Short:         "neutron spin transport through magnetic coil setups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".neutronsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "field workers (0 uses the config or all cpus)")

	fieldCmd := &cobra.Command{
		Use:   "field",
		Short: "compute and store the magnetic field",
		Args:  cobra.NoArgs,
		RunE:  computeField,
	}
	fieldCmd.Flags().StringVar(&fieldID, "id", "", "field id (default field_<unix time>)")

	beamCmd := &cobra.Command{
		Use:   "beam [field_id]",
		Short: "propagate the beam through a stored or freshly computed field",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBeam,
	}
	beamCmd.Flags().BoolVar(&useTUI, "tui", false, "show progress in the terminal")

	probeCmd := &cobra.Command{
		Use:   "probe x y z",
		Short: "evaluate the total field at one point",
		Args:  cobra.ExactArgs(3),
		RunE:  probeField,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [field_id]",
		Short: "plot the axial field and the polarisation profile",
		Args:  cobra.ExactArgs(1),
		RunE:  plotField,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [field_id]",
		Short: "precession frequency of the stored polarisation profile",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeProfile,
	}
	spectrumCmd.Flags().StringVar(&component, "component", "y", "polarisation component (x, y, z)")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "grid search over element parameters",
		Args:  cobra.NoArgs,
		RunE:  scan,
	}
	scanCmd.Flags().StringSliceVar(&scanParams, "param", nil, "element.param to scan (repeatable)")
	scanCmd.Flags().Float64SliceVar(&scanFrom, "from", nil, "range start per param")
	scanCmd.Flags().Float64SliceVar(&scanTo, "to", nil, "range end per param")
	scanCmd.Flags().IntVar(&scanPoints, "points", 5, "points per param")
	scanCmd.Flags().StringVar(&objective, "objective", "depolarisation", "objective to minimize")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored fields",
		RunE:  listFields,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "list element kinds",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range coils.Kinds() {
				fmt.Printf("  %s\n", k)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the selected configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [field_id]",
		Short: "export field and polarisation data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportFile(os.Stdout, args[0])
		},
	}

	rootCmd.AddCommand(fieldCmd, beamCmd, probeCmd, plotCmd, spectrumCmd, scanCmd, listCmd, presetsCmd, kindsCmd, initCmd, exportJSONCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig picks the config file, then the preset, then the defaults.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	return cfg, cfg.Validate()
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := config.NamedLogger("neutronsim", cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func computeField(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	start := time.Now()
	s, c, err := experiment.New(cfg, experiment.WithLogger(log)).ComputeField(ctx)
	if err != nil {
		return err
	}
	id, err := st.SaveField(fieldID, c, s.Elements())
	if err != nil {
		return err
	}

	fmt.Printf("computed %s in %v\n", c, time.Since(start))
	fmt.Printf("field id: %s\n", id)
	return nil
}

func runBeam(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	var res *experiment.Result
	id := ""
	switch {
	case len(args) == 1:
		id = args[0]
		c, meta, err := st.LoadField(id)
		if err != nil {
			return err
		}
		cfg.Grid = meta.Grid
		if res, err = experiment.New(cfg, experiment.WithLogger(log)).RunBeam(ctx, c); err != nil {
			return err
		}
	case useTUI:
		log.SetLevel(logrus.ErrorLevel)
		name := preset
		if configFile != "" {
			name = configFile
		}
		if res, err = tui.Run(ctx, name, cfg, log); err != nil {
			return err
		}
	default:
		if res, err = experiment.New(cfg, experiment.WithLogger(log)).Run(ctx); err != nil {
			return err
		}
	}

	if id != "" {
		if err := st.SavePolarisation(id, res.Profile); err != nil {
			return err
		}
	}

	fmt.Printf("created: %d\n", res.Created)
	fmt.Printf("collimated: %d\n", res.Collimated)
	fmt.Printf("monochromated: %d\n", res.Monochromated)
	fmt.Printf("steps: %d\n", res.Steps)
	fmt.Printf("live: %d\n", res.Live)
	fmt.Printf("polarisation: (%.6f, %.6f, %.6f)\n", res.Polarisation.X, res.Polarisation.Y, res.Polarisation.Z)
	return nil
}

func probeField(cmd *cobra.Command, args []string) error {
	var p [3]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("coordinate %d: %w", i, err)
		}
		p[i] = v
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	s, err := experiment.New(cfg, experiment.WithLogger(log)).BuildSetup()
	if err != nil {
		return err
	}

	b := s.TotalField(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	fmt.Printf("B = (%.6g, %.6g, %.6g) G\n", b.X, b.Y, b.Z)
	fmt.Printf("|B| = %.6g G\n", r3.Norm(b))
	return nil
}

func plotField(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	c, meta, err := st.LoadField(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("field: %s\n", meta.ID)
	fmt.Printf("points: %d\n\n", meta.Points)

	axis := c.AxisProfile()
	bx := make([]float64, len(axis))
	for i, p := range axis {
		bx[i] = p.B.X
	}
	fmt.Println(asciigraph.Plot(bx,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("Bx on axis (G)"),
	))
	fmt.Println()

	if !st.HasPolarisation(meta.ID) {
		return nil
	}
	cells, err := st.LoadPolarisation(meta.ID)
	if err != nil {
		return err
	}
	for _, comp := range []analysis.Component{analysis.X, analysis.Y, analysis.Z} {
		_, values := analysis.Series(cells, comp)
		if len(values) == 0 {
			continue
		}
		fmt.Println(asciigraph.Plot(values,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("p"+comp.String()+" vs x"),
		))
		fmt.Println()
	}
	return nil
}

func analyzeProfile(cmd *cobra.Command, args []string) error {
	comp, err := analysis.ParseComponent(component)
	if err != nil {
		return err
	}

	cfg, _, err := setup()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	c, meta, err := st.LoadField(args[0])
	if err != nil {
		return err
	}
	cells, err := st.LoadPolarisation(meta.ID)
	if err != nil {
		return err
	}

	_, values := analysis.Series(cells, comp)
	freq, err := analysis.DominantFrequency(values, meta.Grid.XStep)
	if err != nil {
		return err
	}

	ps := analysis.PowerSpectrum(values)
	fmt.Println(asciigraph.Plot(ps,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (p"+comp.String()+")"),
	))
	fmt.Println()
	fmt.Printf("dominant frequency: %.3f /m\n", freq)
	fmt.Printf("expected for mean axial |B| at %.1f m/s: %.3f /m\n", cfg.Beam.Speed(), analysis.ExpectedFrequency(c.AxisProfile(), cfg.Beam.Speed()))
	if freq > 0 {
		fmt.Printf("precession period: %.4g m\n", 1/freq)
	}
	return nil
}

func scan(cmd *cobra.Command, args []string) error {
	if len(scanFrom) != len(scanParams) || len(scanTo) != len(scanParams) {
		return fmt.Errorf("need one --from and --to per --param")
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	obj, err := experiment.GetObjective(objective)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, experiment.ListObjectives())
	}

	ranges := make([][]float64, len(scanParams))
	for i := range scanParams {
		ranges[i] = optim.Range(scanFrom[i], scanTo[i], scanPoints)
	}
	g, err := optim.NewGridSearch(scanParams, ranges)
	if err != nil {
		return err
	}
	g.WithLogger(log)

	ctx, cancel := signalContext()
	defer cancel()

	// Each run already parallelizes its field, so runs go one at a time.
	quiet := logrus.New()
	quiet.SetLevel(logrus.ErrorLevel)
	best, value, evals, err := g.Search(ctx, cfg, obj, experiment.WithLogger(quiet))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, p := range scanParams {
		fmt.Fprintf(w, "%s\t", p)
	}
	fmt.Fprintln(w, objective)
	for _, ev := range evals {
		for _, p := range scanParams {
			fmt.Fprintf(w, "%.6g\t", ev.Params[p])
		}
		if ev.Err != nil {
			fmt.Fprintf(w, "error: %v\n", ev.Err)
			continue
		}
		fmt.Fprintf(w, "%.6f\n", ev.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest %s = %.6f at %v\n", objective, value, best)
	return nil
}

func listFields(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	fields, err := st.List()
	if err != nil {
		return err
	}

	if len(fields) == 0 {
		fmt.Println("no fields found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPOINTS\tELEMENTS\tBEAM")

	for _, f := range fields {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n",
			f.ID,
			f.Timestamp.Format("2006-01-02 15:04:05"),
			f.Points,
			len(f.Elements),
			st.HasPolarisation(f.ID),
		)
	}

	return w.Flush()
}
