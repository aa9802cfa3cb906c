package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/storage/chainfile"
)

// EncodeCommand returns the encode command.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Encode snapshot lines into a chain",
		ArgsUsage: "[SNAPSHOTS|-] [CHAIN|-]",
		Description: "Reads one JSON label array per line and writes one record per line.\n" +
			"Missing arguments or \"-\" mean stdin and stdout.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "extreme",
				Aliases: []string{"x"},
				Usage:   "Relabel two-partition swaps when that shrinks a record",
			},
			&cli.StringFlag{
				Name:    "compression",
				Aliases: []string{"z"},
				Usage:   "Chain container: none, zstd",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Print a summary to stderr",
			},
		},
		Action: encodeAction,
	}
}

func encodeAction(c *cli.Context) error {
	if c.NArg() > 2 {
		return cli.Exit("encode takes at most two arguments", ExitUsage)
	}
	rt := getRuntime(c)

	extreme := rt.cfg.Encode.Extreme
	if c.IsSet("extreme") {
		extreme = c.Bool("extreme")
	}
	compressionName := rt.cfg.Encode.Compression
	if c.IsSet("compression") {
		compressionName = c.String("compression")
	}
	compression, err := domain.ParseCompression(compressionName)
	if err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}

	in, err := openInput(c, c.Args().Get(0))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := createOutput(c, c.Args().Get(1))
	if err != nil {
		return err
	}

	res, err := encodeTo(c, in, out, compression, extreme)
	if err := finishOutput(out, err); err != nil {
		return err
	}

	rt.log.Info("chain encoded",
		"steps", res.Steps,
		"nodes", res.Nodes,
		"bytes", res.Stats.Bytes,
		"compression", compression)

	if c.Bool("stats") {
		fmt.Fprintf(c.App.ErrWriter, "steps=%d nodes=%d changed=%d relabel_swaps=%d skips=%d bytes=%d\n",
			res.Steps, res.Nodes, res.Changed, res.RelabelSwaps, res.Stats.Skips, res.Stats.Bytes)
	}
	return nil
}

// encodeTo encodes in into out wrapped in the given container.
func encodeTo(c *cli.Context, in io.Reader, out io.Writer, compression domain.Compression, extreme bool) (*service.EncodeResult, error) {
	w, err := chainfile.NewWriter(out, compression)
	if err != nil {
		return nil, err
	}
	res, err := getRuntime(c).svc.Encode(c.Context, &service.EncodeRequest{
		Input:   in,
		Output:  w,
		Extreme: extreme,
	})
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close chain: %w", err)
	}
	return res, nil
}
