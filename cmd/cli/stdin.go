package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/kcaldas/blockfit/pkg/blocks"
)

// hasStdinInput checks if data is available from stdin (pipe or redirect)
func hasStdinInput() bool {
	fd := os.Stdin.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// stdinReader returns in when the input should come from stdin: "-" or no
// argument with a pipe attached.
func stdinReader(arg string, in io.Reader) (io.Reader, error) {
	if arg == "-" || hasStdinInput() {
		return in, nil
	}
	return nil, fmt.Errorf("no input: pass a request file or pipe one on stdin")
}

// loadRequest reads a request from the file named by arg, or from stdin.
func loadRequest(arg string, in io.Reader) (blocks.RequestSpec, error) {
	if arg != "" && arg != "-" {
		return blocks.LoadRequest(arg)
	}
	r, err := stdinReader(arg, in)
	if err != nil {
		return blocks.RequestSpec{}, err
	}
	spec, err := blocks.DecodeRequest(r)
	if err != nil {
		return blocks.RequestSpec{}, fmt.Errorf("stdin: %w", err)
	}
	return spec, nil
}

// loadBatch reads a batch from the file named by arg, or from stdin.
func loadBatch(arg string, in io.Reader) (blocks.BatchSpec, error) {
	if arg != "" && arg != "-" {
		return blocks.LoadBatch(arg)
	}
	r, err := stdinReader(arg, in)
	if err != nil {
		return blocks.BatchSpec{}, err
	}
	spec, err := blocks.DecodeBatch(r)
	if err != nil {
		return blocks.BatchSpec{}, fmt.Errorf("stdin: %w", err)
	}
	return spec, nil
}
