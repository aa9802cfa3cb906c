package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/storage/chainfile"
)

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check that a chain reproduces a snapshot file",
		ArgsUsage: "CHAIN SNAPSHOTS",
		Description: "Replays CHAIN and compares every step with the matching line of\n" +
			"SNAPSHOTS. Exits with status 3 on the first mismatch.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "up-to-relabel",
				Usage: "Compare groupings, not labels (for chains encoded with --extreme)",
			},
		},
		Action: verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("verify needs CHAIN and SNAPSHOTS", ExitUsage)
	}
	if c.Args().Get(0) == "-" && c.Args().Get(1) == "-" {
		return cli.Exit("only one of CHAIN and SNAPSHOTS can be stdin", ExitUsage)
	}
	rt := getRuntime(c)

	chainIn, err := openInput(c, c.Args().Get(0))
	if err != nil {
		return err
	}
	defer chainIn.Close()

	raw, _, err := chainfile.NewReader(chainIn)
	if err != nil {
		return err
	}
	defer raw.Close()

	snapshots, err := openInput(c, c.Args().Get(1))
	if err != nil {
		return err
	}
	defer snapshots.Close()

	res, err := rt.svc.Verify(c.Context, &service.VerifyRequest{
		Chain:       raw,
		Snapshots:   snapshots,
		UpToRelabel: c.Bool("up-to-relabel"),
	})
	if err != nil {
		return err
	}
	if err := printReport(c, res); err != nil {
		return err
	}
	if !res.OK {
		return cli.Exit("", ExitMismatch)
	}
	return nil
}
