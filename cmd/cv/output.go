package main

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/canopy/pkg/analysis"
	"github.com/vanderheijden86/canopy/pkg/config"
	"github.com/vanderheijden86/canopy/pkg/export"
	"github.com/vanderheijden86/canopy/pkg/loader"
	"github.com/vanderheijden86/canopy/pkg/model"
	"github.com/vanderheijden86/canopy/pkg/tree"
	"github.com/vanderheijden86/canopy/pkg/ui"
)

// statsReport is the --robot-stats document.
type statsReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Stats       analysis.Stats `json:"stats"`
	Warnings    []tree.Warning `json:"warnings"`
}

// writeOutputs handles the batch flags. Files are written first so that a
// failing export does not leave half of stdout printed.
func writeOutputs(w io.Writer, ctrl *tree.Controller, records []model.Record, o *options, cfg *config.Config, title string) error {
	rows := ctrl.Rows()
	imageOpts := export.ImageOptions{Title: title, IndentUnit: cfg.View.IndentUnit}

	if o.exportMD != "" {
		opts := export.MarkdownOptions{Title: title, Timestamp: time.Now(), Thumbnails: true}
		if err := export.SaveMarkdownToFile(rows, opts, o.exportMD); err != nil {
			return fmt.Errorf("export markdown: %w", err)
		}
		log.Printf("wrote %s", o.exportMD)
	}
	if o.exportHTML != "" {
		opts := export.HTMLOptions{Title: title, IndentUnit: cfg.View.IndentUnit}
		if err := export.SaveHTMLToFile(rows, opts, o.exportHTML); err != nil {
			return fmt.Errorf("export html: %w", err)
		}
		log.Printf("wrote %s", o.exportHTML)
	}
	if o.exportSVG != "" {
		if err := export.SaveSVGToFile(rows, imageOpts, o.exportSVG); err != nil {
			return fmt.Errorf("export svg: %w", err)
		}
		log.Printf("wrote %s", o.exportSVG)
	}
	if o.exportPNG != "" {
		if err := export.SavePNGToFile(rows, imageOpts, o.exportPNG); err != nil {
			return fmt.Errorf("export png: %w", err)
		}
		log.Printf("wrote %s", o.exportPNG)
	}

	if o.printMD {
		if err := printMarkdown(w, rows, title); err != nil {
			return err
		}
	}
	if o.robotRows {
		if err := export.WriteJSON(w, export.RobotRows(rows)); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
	}
	if o.robotStats {
		report := statsReport{
			GeneratedAt: time.Now().UTC(),
			Stats:       analysis.Analyze(records),
			Warnings:    ctrl.Warnings(),
		}
		if report.Warnings == nil {
			report.Warnings = []tree.Warning{}
		}
		if err := export.WriteJSON(w, report); err != nil {
			return fmt.Errorf("write stats: %w", err)
		}
	}
	return nil
}

// printMarkdown renders the Markdown list for the terminal.
func printMarkdown(w io.Writer, rows []tree.DisplayRow, title string) error {
	md := export.GenerateMarkdown(rows, export.MarkdownOptions{Title: title})

	width := 80
	if isTerminal(os.Stdout) {
		if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// controllerSender applies reloaded snapshots straight to the controller
// when no TUI is running.
type controllerSender struct {
	ctrl *tree.Controller
}

func (s controllerSender) Send(msg tea.Msg) {
	switch msg := msg.(type) {
	case ui.SnapshotReadyMsg:
		if err := s.ctrl.LoadRecords(msg.Snapshot.Records); err != nil {
			log.Printf("warning: reload: %v", err)
			return
		}
		log.Printf("reloaded %d records", len(msg.Snapshot.Records))
	case ui.SnapshotErrorMsg:
		log.Printf("warning: reload failed, keeping previous tree: %v", msg.Err)
	}
}

func serve(cmd *cobra.Command, ctrl *tree.Controller, src loader.Source, o *options, cfg *config.Config, title string, watch bool) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if watch {
		worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
			Source:        src,
			DebounceDelay: cfg.Watch.Debounce,
			LoadTimeout:   o.loadTimeout,
			Program:       controllerSender{ctrl: ctrl},
		})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer worker.Stop()
	}

	srv := export.NewPreviewServer(ctrl, export.HTMLOptions{Title: title, IndentUnit: cfg.View.IndentUnit})
	out := cmd.OutOrStdout()
	return srv.Serve(ctx, o.serve, func(a net.Addr) {
		fmt.Fprintf(out, "Serving %s on http://%s (Ctrl+C to stop)\n", title, a)
	})
}
