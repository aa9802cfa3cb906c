package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sampleSnapshots is the two-step example: one node moves to partition 1.
const sampleSnapshots = "[0,0,1]\n[0,1,1]\n"

// sampleChain is the encoding of sampleSnapshots.
var sampleChain = []byte{
	0x00, 0x00, 0x00, 0x01, 0xFF, 0xFE, 0x01, 0x00, 0x02, 0xFF, 0xFF,
	0xFF, 0xFE, 0x01, 0x00, 0x01, 0xFF, 0xFF,
}

type result struct {
	stdout string
	stderr string
	err    error
}

// testEnv isolates a CLI run: HOME and the catalog live in temp dirs.
type testEnv struct {
	t       *testing.T
	dir     string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USER", "tester")
	return &testEnv{
		t:       t,
		dir:     t.TempDir(),
		dataDir: filepath.Join(home, "data"),
	}
}

// run executes the CLI with stdin and returns its output.
func (e *testEnv) run(stdin string, args ...string) result {
	e.t.Helper()
	return e.runContext(context.Background(), stdin, args...)
}

// runContext is run with a context that can interrupt the command.
func (e *testEnv) runContext(ctx context.Context, stdin string, args ...string) result {
	e.t.Helper()
	app := App()
	var out, errOut bytes.Buffer
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = &errOut

	full := append([]string{"pcompress", "--data-dir", e.dataDir}, args...)
	err := app.RunContext(ctx, full)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	res := e.run(stdin, args...)
	if res.err != nil {
		e.t.Fatalf("pcompress %s: %v\nstderr: %s", strings.Join(args, " "), res.err, res.stderr)
	}
	return res.stdout
}

// file writes content to a file in the env dir and returns its path.
func (e *testEnv) file(name string, content []byte) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		e.t.Fatal(err)
	}
	return path
}

func (e *testEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}
