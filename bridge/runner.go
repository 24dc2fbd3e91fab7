package bridge

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
)

type environment struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
}

// Run parses args and executes the selected command; serve is the default.
func Run(args []string) error {
	return run(context.Background(), args, os.Stdin, os.Stdout)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 || (strings.HasPrefix(args[0], "-") && !isHelp(args[0])) {
		args = append([]string{"serve"}, args...)
	}
	env := &environment{ctx: ctx, stdin: stdin, stdout: stdout}
	options := newOptions(env)
	parser := flags.NewParser(options, flags.HelpFlag|flags.PassDoubleDash|flags.PrintErrors)
	parser.Name = "toolman"
	_, err := parser.ParseArgs(args)
	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		return nil
	}
	return err
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help"
}
