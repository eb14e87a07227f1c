package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"IndicatorMaster/internal/collector"
	"IndicatorMaster/internal/config"
	"IndicatorMaster/internal/logger"
	"IndicatorMaster/internal/metrics"
	"IndicatorMaster/internal/model"
	"IndicatorMaster/internal/notifier"
	"IndicatorMaster/internal/recorder"
	"IndicatorMaster/internal/report"
	"IndicatorMaster/internal/scheduler"
	"IndicatorMaster/internal/store"
)

// app is everything a command needs, built from the config file.
type app struct {
	cfg       *config.Config
	store     *store.Store
	recorder  recorder.Recorder
	collector *collector.Collector
}

func setup(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return nil, err
	}

	st := store.New(store.Options{
		Path:       cfg.Store.Path,
		BackupDir:  cfg.Store.BackupDir,
		Retention:  cfg.Retention(),
		MinHistory: cfg.MinHistory(),
	}, cfg.Registry())

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}

	return &app{
		cfg:       cfg,
		store:     st,
		recorder:  rec,
		collector: collector.NewCollector(cfg, st, rec, metrics.NewMetrics()),
	}, nil
}

func (a *app) close() {
	if err := a.recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}

func printRun(res *model.RunResult) {
	fmt.Printf("run %s: %s\n", res.RunID, res.Path)
	for _, st := range res.Statuses {
		line := fmt.Sprintf("  %-8s %s", st.Status, st.Name)
		if st.Message != "" {
			line += ": " + st.Message
		}
		fmt.Println(line)
	}
	for _, w := range res.Warnings {
		fmt.Println("  warning:", w)
	}
	if res.BackupPath != "" {
		fmt.Println("  backup:", res.BackupPath)
	}
	if res.Err != nil {
		fmt.Println("  error:", res.Err)
	}
}

func exitStatus(res *model.RunResult) error {
	if res.OK() {
		return nil
	}
	return cli.Exit(fmt.Sprintf("run finished with %d failed indicator(s)", res.Count(model.StatusFailed)), 1)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.collector.Run(ctx)
	printRun(res)
	return exitStatus(res)
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy)
	var sender scheduler.Sender
	if tn.Enabled() {
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, a.collector, a.store, sender)
	if err := sched.Register(a.cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}
	if cmd.Bool("run-on-start") {
		go sched.RunNow()
	}

	log.Info().Str("cron", a.cfg.Schedule.Cron).Msg("IndicatorMaster is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	name := cmd.String("name")
	ind, ok := a.cfg.Indicator(name)
	if !ok {
		ind = config.Indicator{Name: name, Frequency: cmd.String("frequency")}
	}
	freq, err := model.ParseFrequency(ind.Frequency)
	if err != nil {
		return fmt.Errorf("indicator %s: %w", name, err)
	}
	quality, err := model.ParseDataQuality(cmd.String("quality"))
	if err != nil {
		return err
	}

	file := cmd.String("file")
	obs, err := collector.ReadObservations(file, cmd.String("query"))
	source := cmd.String("source")
	if source == "" {
		source = "manual import " + file
	}
	res := a.collector.Ingest(ctx, &model.FetchResult{
		Name:         name,
		Frequency:    freq,
		Source:       source,
		Quality:      quality,
		Observations: obs,
		Err:          err,
	})
	printRun(res)
	if res.Err == nil && res.Count(model.StatusMerged) == 0 {
		return cli.Exit("nothing imported", 1)
	}
	return exitStatus(res)
}

func showAction(_ context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	doc := a.store.Load()
	if issue := a.store.LoadIssue(); issue != nil {
		return issue
	}
	names := cmd.StringSlice("name")
	if cmd.Bool("plain") {
		fmt.Print(report.Markdown(doc, names...))
		return nil
	}
	out, err := report.Render(doc, int(cmd.Int("width")), names...)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	schema := r.Reflect(&model.Document{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "indicator-master",
		Usage: "Maintain the master dataset of macro and market indicators",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Fetch every indicator once, merge and save",
				Action: runAction,
			},
			{
				Name:  "serve",
				Usage: "Run on the configured schedule and answer Telegram commands",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "run-on-start",
						Usage:   "Collect once immediately",
						Sources: cli.EnvVars("RUN_ON_START"),
					},
				},
				Action: serveAction,
			},
			{
				Name:  "import",
				Usage: "Merge a manually maintained JSON file into one indicator",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON object of `period` to value", Required: true},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Indicator name", Required: true},
					&cli.StringFlag{Name: "query", Usage: "JSONPath selecting the object inside the file"},
					&cli.StringFlag{Name: "frequency", Usage: "Frequency when the indicator is not configured", Value: "monthly"},
					&cli.StringFlag{Name: "quality", Usage: "Data quality tag", Value: string(model.QualityManual)},
					&cli.StringFlag{Name: "source", Usage: "Source label stored with the indicator"},
				},
				Action: importAction,
			},
			{
				Name:  "show",
				Usage: "Print the indicator table of the master file",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "name", Aliases: []string{"n"}, Usage: "Only these indicators"},
					&cli.BoolFlag{Name: "plain", Usage: "Print markdown without styling"},
					&cli.IntFlag{Name: "width", Usage: "Wrap width", Value: 120},
				},
				Action: showAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the master file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
