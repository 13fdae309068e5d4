package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/vanderheijden86/canopy/pkg/model"
	"github.com/vanderheijden86/canopy/pkg/tree"
)

// TreeController is the part of tree.Controller the preview server drives.
type TreeController interface {
	Rows() []tree.DisplayRow
	Click(id model.ID) bool
	ExpandAll()
	CollapseAll()
	Subscribe() (<-chan struct{}, func())
}

// PreviewServer serves the tree as a live HTML page. Clicking a parent row
// toggles it on the server; every change makes connected browsers reload.
type PreviewServer struct {
	ctrl TreeController
	opts HTMLOptions
	hub  *LiveReloadHub
	srv  *http.Server
}

// NewPreviewServer wires a server around ctrl.
func NewPreviewServer(ctrl TreeController, opts HTMLOptions) *PreviewServer {
	opts.Interactive = true
	return &PreviewServer{
		ctrl: ctrl,
		opts: opts,
		hub:  NewLiveReloadHub(),
	}
}

// Handler returns the routes:
//
//	GET  /                    HTML page with live reload
//	GET  /rows.json           current rows as JSON
//	POST /toggle/{id}         toggle a node
//	POST /expand-all          expand every node
//	POST /collapse-all        collapse every node
//	GET  /__preview__/events  SSE change stream
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", liveReloadMiddleware(http.HandlerFunc(s.handlePage)))
	mux.HandleFunc("GET /rows.json", s.handleRows)
	mux.HandleFunc("POST /toggle/{id}", s.handleToggle)
	mux.HandleFunc("POST /expand-all", func(w http.ResponseWriter, r *http.Request) {
		s.ctrl.ExpandAll()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /collapse-all", func(w http.ResponseWriter, r *http.Request) {
		s.ctrl.CollapseAll()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /__preview__/events", s.hub.SSEHandler())
	return mux
}

func (s *PreviewServer) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, s.ctrl.Rows(), s.opts); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

func (s *PreviewServer) handleRows(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := WriteJSON(w, RobotRows(s.ctrl.Rows())); err != nil {
		log.Printf("warning: write rows: %v", err)
	}
}

func (s *PreviewServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	if !s.ctrl.Click(id) {
		// Leaves and unknown IDs are not clickable
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Serve listens on addr until ctx is cancelled. ready, when non-nil,
// receives the bound address once the listener is open.
func (s *PreviewServer) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	changes, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()
	go s.hub.Run(changes)

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		s.hub.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown preview server: %w", err)
		}
		return nil
	case err := <-errCh:
		s.hub.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Hub exposes the live-reload hub (used by tests to count clients).
func (s *PreviewServer) Hub() *LiveReloadHub {
	return s.hub
}
