package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"page_objects/application/pageobject"
	"page_objects/domain/interfaces"
	"page_objects/infrastructure/browser"
	"page_objects/infrastructure/config"
	"page_objects/infrastructure/definition"
	"page_objects/infrastructure/metrics"
	"page_objects/infrastructure/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	envFiles    []string
	definition  string
	url         string
	page        string
	metricsAddr string
	record      bool
	tail        int
}

// NewRootCommand builds the page-objects command line
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "page-objects",
		Short:         "Inspect web pages through declarative page objects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringSliceVar(&f.envFiles, "env", nil, ".env files to load (default .env)")

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Open an interactive inspector over a browser session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, f)
		},
	}
	inspect.Flags().StringVarP(&f.definition, "definition", "d", "", "yaml file declaring pages and views")
	inspect.Flags().StringVar(&f.url, "url", "", "url to open on start")
	inspect.Flags().StringVar(&f.page, "page", "", "declared page to open on start")
	inspect.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve poll metrics on this address (overrides METRICS_ADDR)")
	inspect.Flags().BoolVar(&f.record, "record", false, "journal every driver interaction")

	dump := &cobra.Command{
		Use:   "dump <definition>",
		Short: "Print the pages and views declared in a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := definition.Load(args[0])
			if err != nil {
				return err
			}
			for _, p := range def.Pages {
				dumpPage(cmd.OutOrStdout(), p, 0)
			}
			return nil
		},
	}

	journal := &cobra.Command{
		Use:   "journal",
		Short: "Print recorded driver interactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.envFiles...)
			if err != nil {
				return err
			}
			j, err := storage.NewFileJournal(cfg.JournalPath)
			if err != nil {
				return err
			}
			t := &TerminalInterface{journal: j, out: cmd.OutOrStdout()}
			return t.printJournal([]string{fmt.Sprint(f.tail)})
		},
	}
	journal.Flags().IntVarP(&f.tail, "tail", "n", 50, "number of interactions to print")

	root.AddCommand(inspect, dump, journal)
	return root
}

func runInspect(cmd *cobra.Command, f *flags) error {
	cfg, err := config.Load(f.envFiles...)
	if err != nil {
		return err
	}
	if f.metricsAddr != "" {
		cfg.MetricsAddr = f.metricsAddr
	}
	logger := cfg.Logger()

	var def *definition.Definition
	if f.definition != "" {
		if def, err = definition.Load(f.definition); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver, err := browser.New(cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}

	var journal interfaces.Journal
	if f.record {
		fj, err := storage.NewFileJournal(cfg.JournalPath)
		if err != nil {
			driver.Close()
			return err
		}
		recorder := browser.NewRecordingDriver(driver, fj, logger)
		logger.WithFields(logrus.Fields{"journal": fj.Path(), "session": recorder.Session()}).Info("recording interactions")
		driver, journal = recorder, fj
	}

	opts := cfg.SessionOptions()
	if cfg.MetricsAddr != "" {
		m := metrics.NewPollMetrics()
		opts = append(opts, pageobject.WithObserver(m))
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	session := pageobject.NewSession(driver, logger, opts...)
	t := NewTerminalInterface(session, def, journal, cmd.InOrStdin(), cmd.OutOrStdout())
	defer t.Close()

	switch {
	case f.page != "":
		if err := t.Execute(ctx, "open "+f.page); err != nil {
			return err
		}
	case f.url != "":
		if err := t.Execute(ctx, "open "+f.url); err != nil {
			return err
		}
	}
	return t.Run(ctx)
}

func dumpPage(out io.Writer, p pageobject.PageDeclaration, depth int) {
	indent := strings.Repeat("  ", depth)
	target := p.URL
	if target == "" {
		target = "~" + p.Pattern
	}
	fmt.Fprintf(out, "%spage %s %s\n", indent, p.Name, target)
	for _, v := range p.Views {
		dumpView(out, v, depth+1)
	}
	for _, child := range p.Pages {
		dumpPage(out, child, depth+1)
	}
}

func dumpView(out io.Writer, v pageobject.Declaration, depth int) {
	indent := strings.Repeat("  ", depth)
	name := v.Name
	if name == "" {
		name = "[item]"
	}
	locator := v.Locator.String()
	if v.Locator.IsZero() {
		locator = "(parent)"
	}
	fmt.Fprintf(out, "%s%s (%s) %s\n", indent, name, kindOf(v), locator)
	if v.Item != nil {
		dumpView(out, *v.Item, depth+1)
	}
	for _, child := range v.Children {
		dumpView(out, child, depth+1)
	}
}
