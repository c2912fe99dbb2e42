package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"time"

	"ilipanel/internal/config"
	"ilipanel/internal/convert"
	"ilipanel/internal/font"
	"ilipanel/internal/ili9486"
	appLog "ilipanel/internal/log"
)

const (
	maxImageBytes = 8 << 20
	maxImageSide  = 4096
)

// RefreshFunc redraws the agenda screen.
type RefreshFunc func(ctx context.Context) error

// Server exposes the panel over HTTP.
type Server struct {
	cfg     *config.Config
	panel   *Panel
	refresh RefreshFunc
	mux     *http.ServeMux
}

// NewServer constructs a new Server. refresh may be nil.
func NewServer(cfg *config.Config, panel *Panel, refresh RefreshFunc) *Server {
	s := &Server{
		cfg:     cfg,
		panel:   panel,
		refresh: refresh,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ilipanel", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/panel", s.handlePanel)
	s.mux.HandleFunc("POST /api/backlight", s.handleBacklight)
	s.mux.HandleFunc("POST /api/clear", s.handleClear)
	s.mux.HandleFunc("POST /api/fill", s.handleFill)
	s.mux.HandleFunc("POST /api/line", s.handleLine)
	s.mux.HandleFunc("POST /api/circle", s.handleCircle)
	s.mux.HandleFunc("POST /api/text", s.handleText)
	s.mux.HandleFunc("POST /api/orientation", s.handleOrientation)
	s.mux.HandleFunc("POST /api/image", s.handleImage)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// panelResponse is the JSON shape of /api/panel.
type panelResponse struct {
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Orientation      string `json:"orientation"`
	Background       string `json:"background"`
	Backlight        uint8  `json:"backlight"`
	DefaultBacklight uint8  `json:"default_backlight"`
	Simulated        bool   `json:"simulated"`
}

func (s *Server) handlePanel(w http.ResponseWriter, _ *http.Request) {
	var resp panelResponse
	_ = s.panel.Do(func(d *ili9486.Dev) error {
		resp = panelResponse{
			Width:            d.Width(),
			Height:           d.Height(),
			Orientation:      d.Orientation().String(),
			Background:       d.Background().String(),
			Backlight:        d.Backlight(),
			DefaultBacklight: d.DefaultBacklight(),
			Simulated:        s.panel.Simulated(),
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

type backlightRequest struct {
	Level      *int `json:"level"`
	SetDefault bool `json:"set_default"`
	Restore    bool `json:"restore"`
	Off        bool `json:"off"`
}

func (s *Server) handleBacklight(w http.ResponseWriter, r *http.Request) {
	var req backlightRequest
	if !readJSON(w, r, &req) {
		return
	}
	var level uint8
	if req.Level != nil {
		if *req.Level < 0 || *req.Level > 255 {
			writeError(w, http.StatusBadRequest, "level must be 0..255")
			return
		}
		level = uint8(*req.Level)
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		switch {
		case req.Off:
			return nil, d.BacklightOff()
		case req.Restore:
			return nil, d.RestoreBacklight()
		case req.Level == nil:
			return nil, errBadRequest("level, restore or off is required")
		case req.SetDefault:
			d.ChangeDefaultBacklight(level)
		}
		return nil, d.SetBacklight(level)
	})
}

type clearRequest struct {
	Color string `json:"color"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if !readJSON(w, r, &req) {
		return
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		if req.Color == "" {
			return nil, d.Clear()
		}
		c, err := ili9486.ParseColor(req.Color)
		if err != nil {
			return nil, errBadRequest(err.Error())
		}
		return nil, d.ClearColor(c)
	})
}

type rectRequest struct {
	X0    int    `json:"x0"`
	Y0    int    `json:"y0"`
	X1    int    `json:"x1"`
	Y1    int    `json:"y1"`
	Color string `json:"color"`
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	var req rectRequest
	if !readJSON(w, r, &req) {
		return
	}
	c, ok := colorParam(w, req.Color)
	if !ok {
		return
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		return nil, d.Fill(req.X0, req.Y0, req.X1, req.Y1, c)
	})
}

func (s *Server) handleLine(w http.ResponseWriter, r *http.Request) {
	var req rectRequest
	if !readJSON(w, r, &req) {
		return
	}
	c, ok := colorParam(w, req.Color)
	if !ok {
		return
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		return nil, d.DrawLine(req.X0, req.Y0, req.X1, req.Y1, c)
	})
}

type circleRequest struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	R      int    `json:"r"`
	Color  string `json:"color"`
	Filled bool   `json:"filled"`
}

func (s *Server) handleCircle(w http.ResponseWriter, r *http.Request) {
	var req circleRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.R < 0 {
		writeError(w, http.StatusBadRequest, "r must not be negative")
		return
	}
	c, ok := colorParam(w, req.Color)
	if !ok {
		return
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		return nil, d.DrawCircle(req.X, req.Y, req.R, c, req.Filled)
	})
}

type textRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Text  string `json:"text"`
	Size  string `json:"size"`
	Color string `json:"color"`
}

type textResponse struct {
	X int `json:"x"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !readJSON(w, r, &req) {
		return
	}
	c, ok := colorParam(w, req.Color)
	if !ok {
		return
	}
	size := font.S
	if req.Size != "" {
		var err error
		if size, err = font.ParseSize(req.Size); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		x, err := d.DrawString(req.X, req.Y, req.Text, size, c)
		return textResponse{X: x}, err
	})
}

type orientationRequest struct {
	Orientation string `json:"orientation"`
}

func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	var req orientationRequest
	if !readJSON(w, r, &req) {
		return
	}
	o, err := ili9486.ParseOrientation(req.Orientation)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		if err := d.SetOrientation(o); err != nil {
			return nil, err
		}
		return nil, d.Clear()
	})
}

// handleImage blits a PNG or JPEG body with its top-left corner at the x
// and y query parameters, centre-cropped to what fits on the panel.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x := parseIntDefault(q.Get("x"), 0)
	y := parseIntDefault(q.Get("y"), 0)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image: "+err.Error())
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot decode image: "+err.Error())
		return
	}
	if cfg.Width > maxImageSide || cfg.Height > maxImageSide {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("image %dx%d larger than %dx%d", cfg.Width, cfg.Height, maxImageSide, maxImageSide))
		return
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot decode image: "+err.Error())
		return
	}
	s.run(w, func(d *ili9486.Dev) (any, error) {
		if x < 0 || y < 0 || x >= d.Width() || y >= d.Height() {
			return nil, fmt.Errorf("%w: origin (%d,%d)", ili9486.ErrOutOfBounds, x, y)
		}
		src := convert.Crop(img.Bounds(), d.Width()-x, d.Height()-y)
		pix, err := convert.Pixels(img, src, d.Background())
		if err != nil {
			return nil, errBadRequest(err.Error())
		}
		if err := d.OpenWindow(x, y, x+src.Dx(), y+src.Dy()); err != nil {
			return nil, err
		}
		return nil, d.WriteBuffer(pix)
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotFound, "agenda refresh not configured")
		return
	}
	if err := s.refresh(r.Context()); err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	if !s.panel.Simulated() {
		writeError(w, http.StatusNotFound, ErrNoPreview.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.panel.WritePNG(w); err != nil {
		appLog.Error("preview encode failed", err)
	}
}

// run executes fn under the panel lock and writes its result.
func (s *Server) run(w http.ResponseWriter, fn func(d *ili9486.Dev) (any, error)) {
	var out any
	err := s.panel.Do(func(d *ili9486.Dev) error {
		var err error
		out, err = fn(d)
		return err
	})
	if err != nil {
		if statusFor(err) >= 500 {
			appLog.Error("panel operation failed", err)
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	if out == nil {
		out = map[string]bool{"ok": true}
	}
	writeJSON(w, http.StatusOK, out)
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequest(msg) }

// statusFor maps driver errors to HTTP status codes.
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, ili9486.ErrOutOfBounds),
		errors.Is(err, ili9486.ErrEmptyWindow),
		errors.Is(err, ili9486.ErrInvalidOrientation),
		errors.Is(err, ili9486.ErrUnsupportedChar),
		errors.Is(err, ili9486.ErrUnknownFont):
		return http.StatusBadRequest
	case errors.Is(err, ili9486.ErrHalted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// colorParam parses an optional color, defaulting to white.
func colorParam(w http.ResponseWriter, v string) (ili9486.Color, bool) {
	if v == "" {
		return ili9486.White, true
	}
	c, err := ili9486.ParseColor(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return c, true
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
