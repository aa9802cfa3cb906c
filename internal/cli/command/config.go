package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pcompress-go/internal/cli/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: configInit,
			},
		},
	}
}

func configFile(c *cli.Context) string {
	if p := c.String("config"); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}

func configShow(c *cli.Context) error {
	rt := getRuntime(c)
	return printReport(c, map[string]any{
		"encode.extreme":     rt.cfg.Encode.Extreme,
		"encode.compression": rt.cfg.Encode.Compression,
		"decode.diff":        rt.cfg.Decode.Diff,
		"decode.follow":      rt.cfg.Decode.Follow,
		"decode.follow_idle": rt.cfg.Decode.FollowIdle,
		"catalog.data_dir":   rt.cfg.Catalog.DataDir,
		"log.level":          rt.cfg.Log.Level,
		"log.format":         rt.cfg.Log.Format,
		"metrics.textfile":   rt.cfg.Metrics.Textfile,
		"output":             rt.cfg.Output,
	})
}

func configPath(c *cli.Context) error {
	path := configFile(c)
	state := "missing"
	if _, err := os.Stat(path); err == nil {
		state = "present"
	}
	fmt.Fprintf(c.App.Writer, "%s (%s)\n", path, state)
	return nil
}

func configInit(c *cli.Context) error {
	path := configFile(c)
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return cli.Exit(fmt.Sprintf("%s already exists (use --force to overwrite)", path), ExitUsage)
	}
	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}
