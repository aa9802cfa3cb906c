package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pcompress-go/internal/storage/chainfile"
)

// StatCommand returns the stat command.
func StatCommand() *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "Report record, node and size statistics of a chain",
		ArgsUsage: "[CHAIN|-]",
		Action:    statAction,
	}
}

func statAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return cli.Exit("stat takes at most one argument", ExitUsage)
	}
	rt := getRuntime(c)

	in, err := openInput(c, c.Args().First())
	if err != nil {
		return err
	}
	defer in.Close()

	raw, compression, err := chainfile.NewReader(in)
	if err != nil {
		return err
	}
	defer raw.Close()

	stats, err := rt.svc.Inspect(c.Context, raw)
	if err != nil {
		return fmt.Errorf("inspect chain: %w", err)
	}
	rt.log.Debug("chain inspected", "records", stats.Records, "compression", compression)
	return printReport(c, stats)
}
