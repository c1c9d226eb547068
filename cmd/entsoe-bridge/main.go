package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"entsoe-bridge/internal/config"
	emissions "entsoe-bridge/internal/emissions/domain"
	"entsoe-bridge/internal/entsoe"
	importer "entsoe-bridge/internal/importer/application"
	importinterfaces "entsoe-bridge/internal/importer/interfaces"
	"entsoe-bridge/internal/observability/metrics"
	platformapp "entsoe-bridge/internal/platform/application"
	platform "entsoe-bridge/internal/platform/domain"
	"entsoe-bridge/internal/platform/infrastructure/httpapi"
	"entsoe-bridge/internal/platform/infrastructure/memory"
	"entsoe-bridge/internal/platform/infrastructure/postgres"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

const usage = `usage: entsoe-bridge <command> [flags]

commands:
  import-prices      import day-ahead prices (default: today and tomorrow)
  import-generation  import day-ahead generation and derive CO2 intensity (default: tomorrow)
  migrate            apply the platform schema to the configured database
  show-config        print the effective configuration with secrets redacted
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	logger := log.New(stdout, "", log.LstdFlags)
	switch args[0] {
	case "import-prices":
		return runImport(ctx, importer.KindPrices, args[1:], logger, stderr)
	case "import-generation":
		return runImport(ctx, importer.KindGeneration, args[1:], logger, stderr)
	case "migrate":
		return runMigrate(ctx, args[1:], logger, stderr)
	case "show-config":
		return runShowConfig(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
}

type importFlags struct {
	configPath string
	from       string
	until      string
	resolution string
	dryRun     bool
	reportXLSX string
	reportPDF  string
}

func parseImportFlags(name string, args []string, stderr io.Writer) (importFlags, error) {
	var f importFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "YAML config path (default: $ENTSOE_CONFIG)")
	fs.StringVar(&f.from, "from", "", "first day to import, YYYY-MM-DD in the country timezone")
	fs.StringVar(&f.until, "until", "", "last day to import (inclusive), YYYY-MM-DD in the country timezone")
	fs.StringVar(&f.resolution, "resolution", "", "sensor resolution override, e.g. PT15M or 1h")
	fs.BoolVar(&f.dryRun, "dry-run", false, "run the import against an in-memory platform store")
	fs.StringVar(&f.reportXLSX, "report-xlsx", "", "write an XLSX import report to this path")
	fs.StringVar(&f.reportPDF, "report-pdf", "", "write a PDF import report to this path")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

func runImport(ctx context.Context, kind importer.Kind, args []string, logger *log.Logger, stderr io.Writer) int {
	flags, err := parseImportFlags("import-"+string(kind), args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.Read(flags.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if flags.dryRun {
		cfg.Platform.Backend = config.BackendMemory
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	req, err := buildRequest(cfg, flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	store, db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Printf("entsoe-bridge: open platform store: %v", err)
		return exitFailed
	}
	if db != nil {
		defer db.Close()
	}
	metrics.Init(db, logger)
	defer pushMetrics(cfg, logger)

	publisher, closePublisher, err := buildPublisher(cfg, logger)
	if err != nil {
		logger.Printf("entsoe-bridge: event publisher: %v", err)
		return exitFailed
	}
	defer closePublisher()

	service, err := buildService(cfg, store, publisher, logger)
	if err != nil {
		logger.Printf("entsoe-bridge: %v", err)
		return exitUsage
	}

	var result importer.Result
	switch kind {
	case importer.KindPrices:
		result, err = service.ImportPrices(ctx, req)
	default:
		result, err = service.ImportGeneration(ctx, req)
	}
	if err != nil {
		return exitFailed
	}
	if flags.dryRun {
		logger.Printf("entsoe-bridge: dry run, nothing was written to the platform")
	}
	if err := writeReports(result, flags); err != nil {
		logger.Printf("entsoe-bridge: write report: %v", err)
		return exitFailed
	}
	return exitOK
}

func buildRequest(cfg config.Config, flags importFlags) (importer.Request, error) {
	var req importer.Request
	loc, err := time.LoadLocation(cfg.Country.Timezone)
	if err != nil {
		return req, err
	}
	if flags.from != "" {
		from, err := importer.ParseDate(flags.from, loc)
		if err != nil {
			return req, err
		}
		req.From = &from
	}
	if flags.until != "" {
		until, err := importer.ParseDate(flags.until, loc)
		if err != nil {
			return req, err
		}
		req.Until = &until
	}
	if flags.resolution != "" {
		res, err := timeseries.ParseResolution(flags.resolution)
		if err != nil {
			return req, err
		}
		req.Resolution = res
	}
	return req, nil
}

func openStore(ctx context.Context, cfg config.Config) (platform.Store, *sql.DB, error) {
	switch cfg.Platform.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Platform.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(db), db, nil
	case config.BackendHTTP:
		tokens, err := httpapi.NewTokenSource([]byte(cfg.Platform.JWTSecret), cfg.Platform.ClientID, cfg.Platform.TokenTTL)
		if err != nil {
			return nil, nil, err
		}
		client, err := httpapi.NewClient(cfg.Platform.BaseURL, tokens, cfg.Entsoe.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case config.BackendMemory:
		return memory.NewStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown platform backend %q", cfg.Platform.Backend)
	}
}

func buildPublisher(cfg config.Config, logger *log.Logger) (importer.ImportPublisher, func(), error) {
	publishers := importinterfaces.MultiPublisher{importinterfaces.NewLoggingPublisher(logger)}
	if len(cfg.Events.KafkaBrokers) == 0 {
		return publishers, func() {}, nil
	}
	writer, err := importinterfaces.NewKafkaWriter(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	kafkaPublisher, err := importinterfaces.NewKafkaPublisher(writer)
	if err != nil {
		return nil, nil, err
	}
	publishers = append(publishers, kafkaPublisher)
	closeFn := func() {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Printf("entsoe-bridge: close kafka writer: %v", err)
		}
	}
	return publishers, closeFn, nil
}

func buildService(cfg config.Config, store platform.Store, publisher importer.ImportPublisher, logger *log.Logger) (*importer.Service, error) {
	area, err := cfg.Area()
	if err != nil {
		return nil, err
	}
	clientCfg, err := cfg.EntsoeClientConfig()
	if err != nil {
		return nil, err
	}
	client, err := entsoe.NewClient(clientCfg, entsoe.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	tolerance, err := cfg.Tolerance()
	if err != nil {
		return nil, err
	}
	factors, err := cfg.Factors()
	if err != nil {
		return nil, err
	}
	deriver, err := emissions.NewDeriver(factors,
		emissions.WithStrictFuelTypes(cfg.StrictFuelTypes),
		emissions.WithDerivedSource(cfg.DerivedDataSource),
		emissions.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	resolver, err := platformapp.NewSensorResolver(store, store, store, policy, cfg.Country.Timezone, logger)
	if err != nil {
		return nil, err
	}
	writer, err := platformapp.NewIngestionWriter(store, cfg.Country.Timezone, platformapp.SystemClock{}, logger)
	if err != nil {
		return nil, err
	}
	resolution, err := cfg.Resolution()
	if err != nil {
		return nil, err
	}
	return importer.NewService(
		importer.Settings{
			CountryCode: cfg.Country.Code,
			Area:        area,
			Timezone:    cfg.Country.Timezone,
			Resolution:  resolution,
		},
		client,
		resolver,
		writer,
		timeseries.NewNormalizer(timeseries.WithGapTolerance(tolerance)),
		deriver,
		importer.WithPublisher(publisher),
		importer.WithLogger(logger),
	)
}

func writeReports(result importer.Result, flags importFlags) error {
	if flags.reportXLSX != "" {
		data, err := importinterfaces.BuildReportXLSX(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.reportXLSX, data, 0o644); err != nil {
			return err
		}
	}
	if flags.reportPDF != "" {
		data, err := importinterfaces.BuildReportPDF(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.reportPDF, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func pushMetrics(cfg config.Config, logger *log.Logger) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Printf("entsoe-bridge: push metrics: %v", err)
	}
}

func runMigrate(ctx context.Context, args []string, logger *log.Logger, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config path (default: $ENTSOE_CONFIG)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if cfg.Platform.DatabaseURL == "" {
		fmt.Fprintln(stderr, "migrate: DATABASE_URL not set")
		return exitUsage
	}
	db, err := postgres.Open(ctx, cfg.Platform.DatabaseURL)
	if err != nil {
		logger.Printf("migrate: open db: %v", err)
		return exitFailed
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Printf("migrate: %v", err)
		return exitFailed
	}
	logger.Printf("migrate: schema applied")
	return exitOK
}

func runShowConfig(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("show-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config path (default: $ENTSOE_CONFIG)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	_, _ = stdout.Write(out)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitUsage
	}
	return exitOK
}
