// Command labpbr decomposes legacy resource packs into PBR texture sets and
// processes material directories.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/setanarut/labpbr"
)

const usage = `usage: labpbr <command> [options] <dir>

commands:
  decompose  split every texture of a pack into material directories
  inspect    print the slot resolution of a material as CSV
  normal     synthesize normal.png from the material height map
  process    process one slot and write <material>_<slot>.png or print base64
  palette    write palette.png from the material color texture
  adjust     update the grayscale adjustment of a slot in mat.yml
`

func main() {
	verbose := os.Getenv("LABPBR_DEBUG") != ""
	labpbr.SetLogger(newLogger(verbose))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "decompose":
		err = runDecompose(args)
	case "inspect":
		err = runInspect(args)
	case "normal":
		err = runNormal(args)
	case "process":
		err = runProcess(args)
	case "palette":
		err = runPalette(args)
	case "adjust":
		err = runAdjust(args)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes text to an interactive terminal and JSON otherwise.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// parseDir parses fs and returns its single positional directory argument.
func parseDir(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one directory argument", fs.Name())
	}
	return fs.Arg(0), nil
}
