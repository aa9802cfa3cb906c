package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pcompress-go/internal/cli/output"
	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
)

// ChainCommand returns the chain subcommand group.
func ChainCommand() *cli.Command {
	return &cli.Command{
		Name:  "chain",
		Usage: "Manage the local chain catalog",
		Subcommands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Validate a chain and add it to the catalog",
				ArgsUsage: "CHAIN|-",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Owner of the chain (default $USER)",
						EnvVars: []string{"USER"},
					},
					&cli.StringFlag{Name: "graph-hash", Usage: "Hash of the graph the chain was run on"},
					&cli.StringFlag{Name: "git-commit", Usage: "Commit of the code that produced the chain"},
					&cli.BoolFlag{Name: "git-clean", Usage: "The working tree was clean"},
					&cli.Int64Flag{Name: "start", Usage: "Recording start, Unix seconds"},
					&cli.Int64Flag{Name: "end", Usage: "Recording end, Unix seconds"},
					&cli.StringFlag{Name: "name", Usage: "Filename to record (default: the file's base name)"},
					&cli.StringSliceFlag{Name: "attr", Usage: "Attribute key=value (repeatable)"},
					&cli.StringFlag{Name: "compression", Aliases: []string{"z"}, Usage: "Stored container: none, zstd"},
					&cli.BoolFlag{Name: "extreme", Usage: "The chain was encoded with --extreme"},
				},
				Action: chainImport,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List chains, oldest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Only chains of this user"},
					&cli.StringFlag{Name: "graph-hash", Usage: "Only chains of this graph"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of chains"},
				},
				Action: chainList,
			},
			{
				Name:      "show",
				Usage:     "Show chain metadata",
				ArgsUsage: "ID",
				Action:    chainShow,
			},
			{
				Name:      "rm",
				Usage:     "Delete chains and their files",
				ArgsUsage: "ID...",
				Action:    chainRemove,
			},
			{
				Name:      "backup",
				Usage:     "Write a backup of the catalog index",
				ArgsUsage: "OUTPUT|-",
				Description: "Writes a Badger backup of the chain metadata. Chain files are not\n" +
					"included; copy <data_dir>/chains alongside it.",
				Action: chainBackup,
			},
			{
				Name:      "replay",
				Usage:     "Replay a catalogued chain",
				ArgsUsage: "ID [OUTPUT|-]",
				Flags:     replayFlags()[:2],
				Action:    chainReplay,
			},
		},
	}
}

func chainImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("chain import needs one chain file", ExitUsage)
	}
	rt := getRuntime(c)

	name := c.Args().First()
	in, err := openInput(c, name)
	if err != nil {
		return err
	}
	defer in.Close()

	attrs, err := parseAttributes(c.StringSlice("attr"))
	if err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}

	compression := rt.cfg.Encode.Compression
	if c.IsSet("compression") {
		compression = c.String("compression")
	}

	filename := c.String("name")
	if filename == "" && name != "-" {
		filename = baseName(name)
	}

	req := &catalog.ImportRequest{
		Source:         in,
		Filename:       filename,
		User:           c.String("user"),
		GraphHash:      c.String("graph-hash"),
		GitCommit:      c.String("git-commit"),
		StartTimestamp: c.Int64("start"),
		EndTimestamp:   c.Int64("end"),
		Compression:    domain.Compression(compression),
		Extreme:        c.Bool("extreme"),
		Attributes:     attrs,
	}
	if c.IsSet("git-clean") {
		clean := c.Bool("git-clean")
		req.GitRepoClean = &clean
	}

	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	chain, err := cat.Import(c.Context, req)
	if err != nil {
		return err
	}
	return printReport(c, chain)
}

func parseAttributes(pairs []string) (map[string]string, error) {
	attrs := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("attribute %q: want key=value", p)
		}
		attrs[k] = v
	}
	return attrs, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func chainList(c *cli.Context) error {
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	chains, err := cat.List(c.Context, catalog.Filter{
		User:      c.String("user"),
		GraphHash: c.String("graph-hash"),
		Limit:     c.Int("limit"),
	})
	if err != nil {
		return err
	}
	return printReport(c, chainTable(chains, c.Bool("wide")))
}

func chainTable(chains []*domain.Chain, wide bool) *output.Table {
	t := &output.Table{}
	headers := []string{"ID", "USER", "STEPS", "NODES", "SIZE", "CREATED"}
	if wide {
		headers = append(headers, "GRAPH_HASH", "FILENAME", "COMPRESSION", "EXTREME")
	}
	t.SetHeaders(headers...)
	for _, ch := range chains {
		row := []string{
			ch.ID,
			ch.User,
			strconv.Itoa(ch.Steps),
			strconv.Itoa(ch.Nodes),
			strconv.FormatInt(ch.Size, 10),
			ch.CreatedAtTime().UTC().Format(time.RFC3339),
		}
		if wide {
			row = append(row, dash(ch.GraphHash), ch.Filename, string(ch.Compression), strconv.FormatBool(ch.Extreme))
		}
		t.AddRow(row...)
	}
	return t
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func chainShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("chain show needs one id", ExitUsage)
	}
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	chain, err := cat.Get(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	return printReport(c, chain)
}

func chainRemove(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("chain rm needs at least one id", ExitUsage)
	}
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	for _, id := range c.Args().Slice() {
		if err := cat.Delete(c.Context, id); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "deleted %s\n", strings.ToLower(id))
	}
	return nil
}

func chainBackup(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("chain backup needs an output file or -", ExitUsage)
	}
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	out, err := createOutput(c, c.Args().First())
	if err != nil {
		return err
	}
	if err := finishOutput(out, cat.Backup(out)); err != nil {
		return err
	}
	getRuntime(c).log.Info("catalog backup written", "output", c.Args().First())
	return nil
}

func chainReplay(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("chain replay needs an id and an optional output", ExitUsage)
	}
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	// The stored file is passed on as is; replay detects the container.
	f, _, err := cat.OpenFile(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := createOutput(c, c.Args().Get(1))
	if err != nil {
		return err
	}

	return finishOutput(out, replay(c, f, out, false))
}

