// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/ManuGH/knotlink/internal/linkflow"
	"github.com/ManuGH/knotlink/internal/log"
	"github.com/ManuGH/knotlink/internal/proxy"
	"github.com/ManuGH/knotlink/internal/ratelimit"
)

// FlowCookie identifies the browser's flow.
const FlowCookie = "knotlink_flow"

const maxOutcomeBody = 64 << 10

var (
	//go:embed templates/*.html
	templateFS embed.FS
	//go:embed static
	staticFS embed.FS

	pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))
)

func serveStatic(w http.ResponseWriter, r *http.Request) {
	sub, _ := fs.Sub(staticFS, "static")
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.StripPrefix("/static/", http.FileServer(http.FS(sub))).ServeHTTP(w, r)
}

// flowView is the JSON snapshot returned to the launcher script.
type flowView struct {
	linkflow.Flow
	Launch *linkflow.LaunchParams `json:"launch,omitempty"`
}

type pageData struct {
	Flow        linkflow.Flow
	UserID      string
	MerchantID  string
	Product     string
	Products    []proxy.Product
	Merchants   []linkflow.Merchant
	Environment string
	SDKURL      string
	FieldErrors map[string]string
	Notice      string
	// Launch is the SDK configuration; nil when nothing should open.
	Launch *linkflow.LaunchParams
}

func (s *Server) flowID(w http.ResponseWriter, r *http.Request, create bool) string {
	if c, err := r.Cookie(FlowCookie); err == nil && linkflow.ValidFlowID(c.Value) {
		return c.Value
	}
	if !create {
		return ""
	}
	id := linkflow.NewFlowID()
	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.settings.FlowTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) basePage(f linkflow.Flow) pageData {
	p := pageData{
		Flow:        f,
		UserID:      s.settings.DefaultUserID,
		MerchantID:  strconv.Itoa(s.settings.DefaultMerchantID),
		Product:     s.settings.DefaultProduct,
		Products:    proxy.KnownProducts,
		Merchants:   linkflow.CommonMerchants,
		Environment: s.settings.Environment,
		SDKURL:      s.settings.SDKURL,
	}
	if f.SubjectID != "" {
		p.UserID = f.SubjectID
	}
	if f.MerchantID > 0 {
		p.MerchantID = strconv.Itoa(f.MerchantID)
	}
	if f.Product != "" {
		p.Product = f.Product
	}
	if launch, ok := s.deps.Flows.Launch(f); ok {
		p.Launch = &launch
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, p pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "index.html", p); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "ui")
		logger.Error().Err(err).Str(log.FieldEvent, "ui.render_failed").Msg("template execution failed")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := s.flowID(w, r, true)
	f, err := s.deps.Flows.Get(r.Context(), id)
	if err != nil {
		s.flowStoreError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, s.basePage(f))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := s.flowID(w, r, true)
	ctx := log.ContextWithFlowID(r.Context(), id)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	userID, merchantID, product := r.PostForm.Get("user_id"), r.PostForm.Get("merchant_id"), r.PostForm.Get("product")

	current, err := s.deps.Flows.Get(ctx, id)
	if err != nil {
		s.flowStoreError(w, r, err)
		return
	}

	if s.deps.Submits != nil && !s.deps.Submits.Allow(ratelimit.ClientIP(r, s.settings.TrustedProxies)) {
		p := s.basePage(current)
		p.UserID, p.MerchantID, p.Product = userID, merchantID, product
		p.Notice = "Too many attempts. Please wait a minute and try again."
		w.Header().Set("Retry-After", "60")
		s.render(w, r, http.StatusTooManyRequests, p)
		return
	}

	form, err := linkflow.ParseForm(userID, merchantID, product)
	var ferr *linkflow.FormError
	if errors.As(err, &ferr) {
		p := s.basePage(current)
		p.UserID, p.MerchantID, p.Product = userID, merchantID, product
		p.FieldErrors = ferr.Fields
		s.render(w, r, http.StatusBadRequest, p)
		return
	}

	f, err := s.deps.Flows.Submit(ctx, id, form)
	switch {
	case errors.Is(err, linkflow.ErrFlowBusy):
		p := s.basePage(f)
		p.Notice = "A connection attempt is already in progress."
		s.render(w, r, http.StatusConflict, p)
	case err != nil:
		s.flowStoreError(w, r, err)
	default:
		s.render(w, r, http.StatusOK, s.basePage(f))
	}
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	id := s.flowID(w, r, false)
	if id == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "No link flow for this browser"})
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxOutcomeBody))
	if err != nil {
		writeJSON(w, r, http.StatusRequestEntityTooLarge, map[string]string{"error": "Outcome too large"})
		return
	}
	outcome, err := linkflow.ParseOutcome(raw)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	f, err := s.deps.Flows.Report(r.Context(), id, outcome)
	if err != nil {
		s.flowStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.view(f))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := s.flowID(w, r, false)
	f := linkflow.New("")
	if id != "" {
		var err error
		if f, err = s.deps.Flows.Get(r.Context(), id); err != nil {
			s.flowStoreError(w, r, err)
			return
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, s.view(f))
}

func (s *Server) view(f linkflow.Flow) flowView {
	v := flowView{Flow: f}
	if launch, ok := s.deps.Flows.Launch(f); ok {
		v.Launch = &launch
	}
	return v
}

func (s *Server) flowStoreError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "ui")
	logger.Error().Err(err).Str(log.FieldEvent, "ui.flow_store_failed").Msg("flow store unavailable")
	writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"error": "Link flow temporarily unavailable"})
}
