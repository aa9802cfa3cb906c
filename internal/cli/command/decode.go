package command

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/storage/chainfile"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
)

// DecodeCommand returns the decode command.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Replay a chain as snapshot or delta lines",
		ArgsUsage: "[CHAIN|-] [OUTPUT|-]",
		Flags:     replayFlags(),
		Action:    decodeAction,
	}
}

// replayFlags are shared by decode and chain replay.
func replayFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "diff",
			Aliases: []string{"d"},
			Usage:   "Emit deltas instead of snapshots",
		},
		&cli.IntFlag{
			Name:    "location",
			Aliases: []string{"l"},
			Usage:   "Emit only this zero-based record (0 emits all)",
		},
		&cli.BoolFlag{
			Name:    "follow",
			Aliases: []string{"f"},
			Usage:   "Keep reading as the chain file grows",
		},
		&cli.DurationFlag{
			Name:  "idle",
			Usage: "With --follow, stop after this long without new data",
		},
	}
}

func decodeAction(c *cli.Context) error {
	if c.NArg() > 2 {
		return cli.Exit("decode takes at most two arguments", ExitUsage)
	}
	rt := getRuntime(c)

	follow := rt.cfg.Decode.Follow
	if c.IsSet("follow") {
		follow = c.Bool("follow")
	}

	var src io.ReadCloser
	name := c.Args().Get(0)
	if follow {
		if name == "" || name == "-" {
			return cli.Exit("--follow needs a chain file", ExitUsage)
		}
		idle := rt.cfg.FollowIdleTimeout()
		if c.IsSet("idle") {
			idle = c.Duration("idle")
		}
		fr, err := chainfile.Follow(c.Context, name,
			chainfile.WithIdleTimeout(idle),
			chainfile.WithFollowLogger(logger.Slog(rt.log)))
		if err != nil {
			return err
		}
		src = fr
	} else {
		in, err := openInput(c, name)
		if err != nil {
			return err
		}
		src = in
	}
	defer src.Close()

	out, err := createOutput(c, c.Args().Get(1))
	if err != nil {
		return err
	}

	err = replay(c, src, out, follow)
	// Interrupting a follow is the normal way to end it.
	if follow && errors.Is(err, context.Canceled) {
		err = nil
	}
	return finishOutput(out, err)
}

// replay decodes src, compressed or not, into out using the replay flags.
// With follow set every line is flushed as soon as it is decoded.
func replay(c *cli.Context, src io.Reader, out io.Writer, follow bool) error {
	rt := getRuntime(c)

	diff := rt.cfg.Decode.Diff
	if c.IsSet("diff") {
		diff = c.Bool("diff")
	}

	raw, _, err := chainfile.NewReader(src)
	if err != nil {
		return err
	}
	defer raw.Close()

	start := time.Now()
	res, err := rt.svc.Replay(c.Context, &service.ReplayRequest{
		Input:    raw,
		Output:   out,
		Location: c.Int("location"),
		Diff:     diff,
		Flush:    follow,
	})
	if err != nil {
		return err
	}

	rt.log.Info("chain decoded",
		"records", res.Records,
		"emitted", res.Emitted,
		"elapsed", time.Since(start))
	return nil
}
