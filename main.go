package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hugogrimmett/meeting-analyser/config"
	"github.com/hugogrimmett/meeting-analyser/logging"
	"github.com/hugogrimmett/meeting-analyser/orchestrator"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

var version = "dev"

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitSetup  = 2
)

type options struct {
	start, end string
	configPath string
	noBrowser  bool
}

// openURL shows a page in the user's browser.
var openURL = browser.OpenURL

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	code := exitOK
	root := newRootCmd(&code)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if code == exitOK {
			code = exitSetup
		}
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "meeting-analyser",
		Short: "Analyse participation in meetings from calendar events and their notes",
		Long: `meeting-analyser reads the meetings in a date range, parses the notes
written for each one, works out who spoke how much and to whom, and builds a
presentation of the results.

The end date is exclusive. Dates left out are asked for on a terminal and
default to the last seven days otherwise.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalysis(cmd, opts, code)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.start, "start", "", "first day to analyse (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "day after the last one to analyse (YYYY-MM-DD)")
	f.StringVar(&opts.configPath, "config", "", "config file (default config/$CONFIG_ENV/config.yaml or config.yaml)")
	f.String("source", "", "where events and notes come from: google or local")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.BoolVar(&opts.noBrowser, "no-browser", false, "print links instead of opening them in a browser")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "meeting-analyser", version)
		},
	})
	return cmd
}

func runAnalysis(cmd *cobra.Command, opts options, code *int) error {
	conf, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logging.New(conf.Pipeline.LogLvl, conf.Pipeline.LogFormat)
	if err != nil {
		return err
	}

	from, to, err := resolveRange(opts.start, opts.end, dateInput{
		in:     cmd.InOrStdin(),
		out:    cmd.ErrOrStderr(),
		prompt: term.IsTerminal(int(os.Stdin.Fd())),
		today:  time.Now(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithFields(logrus.Fields{
		"source": conf.Source,
		"from":   from.Format(time.DateOnly),
		"to":     to.Format(time.DateOnly),
		"config": conf.File,
	}).Info("starting analysis")

	var open func(string) error
	if !opts.noBrowser {
		open = openURL
	}
	deps, err := buildDeps(ctx, conf, log, open)
	if err != nil {
		return fmt.Errorf("%w: %w", orchestrator.ErrSetup, err)
	}

	rep, err := orchestrator.NewPipeline(conf, deps, log).Run(ctx, from, to)
	if err != nil {
		if !errors.Is(err, orchestrator.ErrSetup) {
			*code = exitFailed
		}
		if rep != nil && rep.SessionDir != "" {
			log.WithField("dir", rep.SessionDir).Info("analysis files were written")
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Analysis written to %s\n", rep.SessionDir)
	announce(cmd.OutOrStdout(), log, rep.Result.Presentation, open)
	return nil
}

// announce prints where the presentation is and opens an online one.
func announce(out io.Writer, log logrus.FieldLogger, ref presentation.PresentationRef, open func(string) error) {
	switch {
	case ref.URL != "":
		fmt.Fprintf(out, "Presentation: %s\n", ref.URL)
		if open == nil {
			return
		}
		if err := open(ref.URL); err != nil {
			log.WithError(err).Warn("could not open the presentation in a browser")
		}
	case ref.Path != "":
		fmt.Fprintf(out, "Presentation: %s\n", ref.Path)
	}
}
