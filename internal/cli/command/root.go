package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pcompress-go/internal/cli/config"
	"github.com/yndnr/pcompress-go/internal/cli/output"
	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/infra/buildinfo"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
	"github.com/yndnr/pcompress-go/internal/telemetry/metric"
)

const metaRuntime = "pcompress.runtime"

// Exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitDataErr  = 65 // malformed snapshot input or chain
	ExitMismatch = 3  // verify found a differing step
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "pcompress",
		Usage:   "Compress and replay chains of graph partitions",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			EncodeCommand(),
			DecodeCommand(),
			StatCommand(),
			VerifyCommand(),
			ChainCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before:          setup,
		After:           teardown,
		HideHelpCommand: true,
		// Exit codes are chosen by the caller through ExitCode.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// globalFlags returns the global CLI flags. Unset flags leave the
// configuration file and PCOMPRESS_* values in effect.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.pcompress/cli.yaml)",
			EnvVars: []string{"PCOMPRESS_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write run metrics to this node-exporter textfile on exit",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Chain catalog directory",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Report format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// flagKeys maps global flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"metrics-file": "metrics.textfile",
	"data-dir":     "catalog.data_dir",
	"output":       "output",
}

// runtime is the per-invocation state built by setup.
type runtime struct {
	cfg     *config.CLIConfig
	log     logger.Logger
	metrics *metric.Registry
	svc     *service.ChainService
}

func setup(c *cli.Context) error {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}

	path := c.String("config")
	if createsConfig(c.Args().Slice()) {
		// config init writes the file, so it must not need it.
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	cfg, err := config.Load(path, overrides)
	if err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	reg := metric.NewRegistry()
	c.App.Metadata[metaRuntime] = &runtime{
		cfg:     cfg,
		log:     log,
		metrics: reg,
		svc:     service.NewChainService(log, reg),
	}
	return nil
}

func createsConfig(args []string) bool {
	return len(args) >= 2 && args[0] == "config" && args[1] == "init"
}

func teardown(c *cli.Context) error {
	rt, ok := c.App.Metadata[metaRuntime].(*runtime)
	if !ok || rt.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := rt.metrics.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	rt.log.Debug("metrics written", "path", rt.cfg.Metrics.Textfile)
	return nil
}

func getRuntime(c *cli.Context) *runtime {
	rt, ok := c.App.Metadata[metaRuntime].(*runtime)
	if !ok {
		// Commands run without setup only in tests that build contexts by
		// hand.
		cfg := config.Default()
		reg := metric.NewRegistry()
		rt = &runtime{cfg: cfg, log: logger.Discard(), metrics: reg, svc: service.NewChainService(logger.Discard(), reg)}
		c.App.Metadata[metaRuntime] = rt
	}
	return rt
}

// printReport renders data in the configured report format.
func printReport(c *cli.Context, data any) error {
	rt := getRuntime(c)
	format, err := output.ParseFormat(rt.cfg.Output)
	if err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}

// openCatalog opens the local chain catalog.
func openCatalog(c *cli.Context) (*catalog.Catalog, error) {
	rt := getRuntime(c)
	cat, err := catalog.Open(catalog.DefaultConfig(rt.cfg.Catalog.DataDir), logger.Slog(rt.log))
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", rt.cfg.Catalog.DataDir, err)
	}
	return cat, nil
}

// finishOutput closes out once and returns err, or the close error when
// err is nil.
func finishOutput(out io.Closer, err error) error {
	if cerr := out.Close(); err == nil {
		return cerr
	}
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// openInput opens a named file, or stdin for "" and "-".
func openInput(c *cli.Context, name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(c.App.Reader), nil
	}
	return os.Open(name)
}

// createOutput creates a named file, or wraps stdout for "" and "-".
func createOutput(c *cli.Context, name string) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopWriteCloser{c.App.Writer}, nil
	}
	return os.Create(name)
}

// ExitCode maps an error returned by App().Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	for _, target := range []error{
		domain.ErrMalformedInput,
		domain.ErrLabelOutOfRange,
		domain.ErrTooManyNodes,
		domain.ErrReservedNodeID,
		domain.ErrTruncatedStream,
		domain.ErrZeroSkip,
	} {
		if errors.Is(err, target) {
			return ExitDataErr
		}
	}
	if errors.Is(err, domain.ErrBadRequest) || errors.Is(err, domain.ErrInvalidChainID) ||
		errors.Is(err, domain.ErrChainValidation) {
		return ExitUsage
	}
	return ExitError
}

// PrintError prints an error message to stderr.
func PrintError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) && coder.Error() == "" {
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
