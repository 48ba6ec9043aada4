package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/shlex"
	"github.com/spf13/pflag"

	"github.com/ppphp/portagebrowser/config"
	"github.com/ppphp/portagebrowser/pkg/backend"
	"github.com/ppphp/portagebrowser/pkg/events"
	"github.com/ppphp/portagebrowser/pkg/output"
	"github.com/ppphp/portagebrowser/pkg/progress"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

const usage = `Usage: portagebrowser [options] <command> [args]

Commands:
  scan                         scan the trees (or restore the cache file)
  list [--category c] [--name glob] [--installed]
  info <category/name>         show the versions of a package
  updates                      list installed packages with stable updates
  cache save|load              write or read the cache file
  verify <category/name>       check downloaded distfiles
  serve                        start the browsing API

Options:
`

type globalOpts struct {
	config, root, format string
	color                string
	trees                []string
	verbose              int
	noCacheFile, quiet   bool
}

// signalHandler cancels the running operation on the first signal and exits
// on the second.
func signalHandler(cancel context.CancelFunc) {
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	sig := <-s
	cancel()
	sig = <-s
	os.Exit(128 + int(sig.(syscall.Signal)))
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	go signalHandler(cancel)
	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	pf := pflag.NewFlagSet("portagebrowser", pflag.ContinueOnError)
	pf.SetInterspersed(false)
	pf.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pf.PrintDefaults()
	}
	var opts globalOpts
	pf.StringVarP(&opts.config, "config", "c", "", "read settings from this toml file")
	pf.StringVar(&opts.root, "root", "", "system root holding the portage configuration")
	pf.StringVarP(&opts.format, "format", "f", "text", "output format: text, yaml or json")
	pf.StringVar(&opts.color, "color", "auto", "colored text output: auto, always or never")
	pf.StringSliceVar(&opts.trees, "trees", nil, "trees to scan: mainline, overlay, installed")
	pf.CountVarP(&opts.verbose, "verbose", "v", "more output, repeat for debug")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "no progress output")
	pf.BoolVar(&opts.noCacheFile, "no-cache-file", false, "always walk the trees")

	if def := os.Getenv("PORTAGEBROWSER_DEFAULT_OPTS"); def != "" {
		extra, err := shlex.Split(def)
		if err != nil {
			fmt.Fprintf(os.Stderr, "PORTAGEBROWSER_DEFAULT_OPTS: %v\n", err)
			return 2
		}
		args = append(extra, args...)
	}
	if err := pf.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	msg.SetVerbosity(opts.verbose)
	if pf.NArg() == 0 {
		pf.Usage()
		return 2
	}
	cmd, ok := commands[pf.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", pf.Arg(0))
		pf.Usage()
		return 2
	}
	out, err := newPrinter(stdout, opts.format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	switch opts.color {
	case "always":
		output.HaveColor = true
	case "never":
		output.HaveColor = false
	case "auto":
		f, ok := stdout.(*os.File)
		output.HaveColor = ok && output.Auto(f)
	default:
		fmt.Fprintf(os.Stderr, "unknown --color value %q\n", opts.color)
		return 2
	}

	conf, err := config.Load(opts.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.root != "" {
		conf.Paths.Root = opts.root
	}
	if output.HaveColor {
		colorMap := filepath.Join(conf.Paths.Root, output.ColorMapFile)
		err := output.ParseColorMap(colorMap, func(e error) error {
			msg.WithFile(colorMap).Warn(e)
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			msg.WithFile(colorMap).Warn(err)
		}
	}
	if len(opts.trees) > 0 {
		conf.Scan.Trees = opts.trees
	}
	if opts.noCacheFile {
		conf.Scan.UseCacheFile = false
	}

	var ch chan events.Event
	done := make(chan struct{})
	if !opts.quiet && pf.Arg(0) != "serve" {
		ch = make(chan events.Event, 16)
		bar := progress.NewProgressBar(os.Stderr)
		go func() {
			bar.Run(ch)
			close(done)
		}()
	} else {
		close(done)
	}
	b, err := backend.New(conf, ch)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	err = cmd(ctx, b, out, pf.Args()[1:])
	if ch != nil {
		close(ch)
	}
	<-done
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", pf.Arg(0), err)
		return 1
	}
	return 0
}
