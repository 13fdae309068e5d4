package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vanderheijden86/canopy/pkg/config"
	"github.com/vanderheijden86/canopy/pkg/loader"
	"github.com/vanderheijden86/canopy/pkg/model"
	"github.com/vanderheijden86/canopy/pkg/tree"
	"github.com/vanderheijden86/canopy/pkg/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// debugEnv names a file that receives the TUI's log output.
const debugEnv = "CV_DEBUG"

type options struct {
	sources     []string
	configPath  string
	watch       bool
	loadTimeout time.Duration
	title       string

	exportMD   string
	exportHTML string
	exportSVG  string
	exportPNG  string
	printMD    bool
	robotRows  bool
	robotStats bool
	serve      string

	toggles     []string
	collapseAll bool
}

// batchMode reports whether any flag asks for output instead of the TUI.
func (o *options) batchMode() bool {
	return o.exportMD != "" || o.exportHTML != "" || o.exportSVG != "" || o.exportPNG != "" ||
		o.printMD || o.robotRows || o.robotStats
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "cv [flags]",
		Short: "Browse parent-linked records as a collapsible tree",
		Long: `cv nests a flat list of records (id, parent, name, thumbnail) into a tree
and shows it in the terminal, exports it, or serves it as a clickable page.

Sources are taken from --source, else from .cv/config.yaml, else from record
files found below the current directory.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o)
		},
	}
	addFlags(cmd.Flags(), o)
	cmd.AddCommand(newInitCmd())
	return cmd
}

func addFlags(fs *pflag.FlagSet, o *options) {
	fs.StringArrayVarP(&o.sources, "source", "s", nil, "record source: file, SQLite database or http(s) URL (repeatable)")
	fs.StringVarP(&o.configPath, "config", "c", "", "config file (default: .cv/config.yaml, searched upwards)")
	fs.BoolVarP(&o.watch, "watch", "w", false, "reload when source files change")
	fs.DurationVar(&o.loadTimeout, "load-timeout", ui.DefaultLoadTimeout, "timeout for loading records")
	fs.StringVar(&o.title, "title", "", "title for the TUI and exported documents")

	fs.StringVar(&o.exportMD, "export-md", "", "write the tree as a Markdown list to `file`")
	fs.StringVar(&o.exportHTML, "export-html", "", "write the tree as an HTML page to `file`")
	fs.StringVar(&o.exportSVG, "export-svg", "", "write the tree as an SVG picture to `file`")
	fs.StringVar(&o.exportPNG, "export-png", "", "write the tree as a PNG picture to `file`")
	fs.BoolVar(&o.printMD, "print-md", false, "render the Markdown list in the terminal")
	fs.BoolVar(&o.robotRows, "robot-rows", false, "print the display rows as JSON")
	fs.BoolVar(&o.robotStats, "robot-stats", false, "print record set statistics as JSON")
	fs.StringVar(&o.serve, "serve", "", "serve a clickable HTML preview on `addr` (e.g. :8080)")

	fs.StringArrayVar(&o.toggles, "toggle", nil, "toggle the node with this `id` before output (repeatable)")
	fs.BoolVar(&o.collapseAll, "collapse-all", false, "start with every node collapsed")
}

func run(cmd *cobra.Command, o *options) error {
	cfg, baseDir, err := loadSettings(o.configPath)
	if err != nil {
		return err
	}

	src, err := resolveSource(o, cfg, baseDir, isTerminal(os.Stdin))
	if err != nil {
		return err
	}

	ctrl := tree.NewController()
	records, err := loadRecords(cmd.Context(), src, o.loadTimeout)
	if err != nil {
		return err
	}
	if err := ctrl.LoadRecords(records); err != nil {
		return fmt.Errorf("build tree from %s: %w", src.Name(), err)
	}

	collapse := o.collapseAll || cfg.View.CollapseAll
	if collapse {
		ctrl.CollapseAll()
	}
	applyToggles(ctrl, o.toggles)

	title := o.title
	if title == "" {
		title = src.Name()
	}

	if o.batchMode() {
		return writeOutputs(cmd.OutOrStdout(), ctrl, records, o, cfg, title)
	}

	watch := o.watch || cfg.Watch.Enabled
	if o.serve != "" {
		return serve(cmd, ctrl, src, o, cfg, title, watch)
	}

	if !isTerminal(os.Stdout) {
		return errors.New("stdout is not a terminal; use --robot-rows, --print-md or an --export flag")
	}
	return runTUI(ctrl, src, o, cfg, title, watch, collapse)
}

// loadSettings reads the config named by path, or the nearest
// .cv/config.yaml. Without one the defaults apply and discovery scans the
// working directory.
func loadSettings(path string) (*config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		found, err := config.FindConfig(cwd)
		if errors.Is(err, os.ErrNotExist) {
			cfg := config.Defaults()
			cfg.Discovery.ScanPaths = []string{cwd}
			return &cfg, cwd, nil
		}
		if err != nil {
			return nil, "", err
		}
		path = found
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	// Sources are relative to the project, the parent of the .cv directory.
	baseDir := filepath.Dir(filepath.Dir(path))
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	if len(cfg.Discovery.ScanPaths) == 0 {
		cfg.Discovery.ScanPaths = []string{baseDir}
	}
	return cfg, baseDir, nil
}

func loadRecords(ctx context.Context, src loader.Source, timeout time.Duration) ([]model.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

func applyToggles(ctrl *tree.Controller, ids []string) {
	for _, id := range ids {
		if !ctrl.Click(model.ID(id)) {
			log.Printf("warning: --toggle %q: no node with children has this id", id)
		}
	}
}

func runTUI(ctrl *tree.Controller, src loader.Source, o *options, cfg *config.Config, title string, watch, collapse bool) error {
	if path := os.Getenv(debugEnv); path != "" {
		f, err := tea.LogToFile(path, "cv")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	m := ui.NewModel(ctrl, ui.ModelOptions{
		Title:          title,
		ShowDetail:     !cfg.View.HideDetail,
		CollapseOnLoad: collapse,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if watch {
		worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
			Source:        src,
			DebounceDelay: cfg.Watch.Debounce,
			LoadTimeout:   o.loadTimeout,
			Program:       p,
		})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer worker.Stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
