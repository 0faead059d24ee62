// Package web serves the AgroVision browser UI: crop and disease forms and an
// agriculture chat, backed by the HTTP API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/agrovision/internal/client"
	"github.com/hyperjump/agrovision/internal/mappings"
	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/pkg/utils"
	"go.uber.org/zap"
)

// Messages shown when an API call fails.
const (
	MsgBackendDown      = "❌ Backend not responding"
	MsgDiseaseFailed    = "❌ Disease detection failed"
	MsgChatUnavailable  = "❌ Chatbot service unavailable."
	msgNoImage          = "Upload a plant leaf image first"
	sessionCookie       = "agrovision_session"
	defaultMaxSessions  = 1000
	defaultUploadLimit  = 10 << 20
	defaultCallDeadline = 60 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

// API is the subset of the HTTP client the UI calls.
type API interface {
	PredictCrop(ctx context.Context, req models.CropRequest) (*models.CropResponse, error)
	PredictDisease(ctx context.Context, filename string, r io.Reader) (*models.DiseaseResponse, error)
	Chat(ctx context.Context, req models.ChatRequest) (string, error)
}

// UI is the browser front end.
type UI struct {
	api         API
	sessions    *SessionStore
	tmpl        *template.Template
	logger      *zap.Logger
	uploadLimit int64
	server      *http.Server
}

// Option configures a UI.
type Option func(*UI)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(u *UI) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(st *SessionStore) Option {
	return func(u *UI) { u.sessions = st }
}

// WithUploadLimit bounds the accepted image upload size in bytes.
func WithUploadLimit(n int64) Option {
	return func(u *UI) {
		if n > 0 {
			u.uploadLimit = n
		}
	}
}

// New parses the embedded templates and returns a UI calling api.
func New(api API, opts ...Option) (*UI, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"title": utils.Title,
		"isUser": func(r models.Role) bool {
			return r == models.RoleUser
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	u := &UI{
		api:         api,
		sessions:    NewSessionStore(defaultMaxSessions),
		tmpl:        tmpl,
		logger:      zap.NewNop(),
		uploadLimit: defaultUploadLimit,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Handler returns the UI router.
func (u *UI) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * defaultCallDeadline))

	r.Get("/", u.handleIndex)
	r.Post("/crop", u.handleCrop)
	r.Post("/disease", u.handleDisease)
	r.Post("/chat", u.handleChat)
	r.Post("/chat/clear", u.handleClear)
	r.Post("/chat/{idx}/delete", u.handleDelete)
	return r
}

// Start serves the UI on addr and blocks until it stops.
func (u *UI) Start(addr string) error {
	u.server = &http.Server{
		Addr:              addr,
		Handler:           u.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	u.logger.Info("Starting UI", zap.String("addr", addr))
	return u.server.ListenAndServe()
}

// Stop gracefully shuts down the UI server.
func (u *UI) Stop(ctx context.Context) error {
	if u.server != nil {
		return u.server.Shutdown(ctx)
	}
	return nil
}

type pageData struct {
	Soils     []string
	Seasons   []string
	Rainfalls []string
	Weathers  []string
	PHs       []string
	Session   *Session
}

func (u *UI) handleIndex(w http.ResponseWriter, r *http.Request) {
	s := u.sessions.Get(sessionID(r))
	setSessionCookie(w, s.ID)
	data := pageData{
		Soils:     mappings.Soil.Keys(),
		Seasons:   mappings.Season.Keys(),
		Rainfalls: mappings.Rainfall.Keys(),
		Weathers:  mappings.WeatherTable.Keys(),
		PHs:       mappings.PH.Keys(),
		Session:   s,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := u.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		u.logger.Error("render failed", zap.Error(err))
	}
}

func (u *UI) handleCrop(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := models.CropRequest{
		SoilType:      r.PostForm.Get("soil_type"),
		Season:        r.PostForm.Get("season"),
		RainfallLevel: r.PostForm.Get("rainfall_level"),
		Weather:       r.PostForm.Get("weather"),
		PHRange:       r.PostForm.Get("ph_range"),
	}
	resp, err := u.api.PredictCrop(r.Context(), req)
	s := u.sessions.Update(sessionID(r), func(s *Session) {
		s.CropRequest = req
		s.CropError = ""
		switch {
		case errors.Is(err, client.ErrInvalidInput):
			s.CropError = "Invalid input value provided"
		case err != nil:
			s.CropError = MsgBackendDown
		default:
			s.CropResult = resp
		}
	})
	if err != nil {
		u.logger.Warn("crop prediction failed", zap.Error(err))
	}
	u.redirectHome(w, r, s.ID)
}

func (u *UI) handleDisease(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, u.uploadLimit)
	file, header, err := r.FormFile("file")
	if err != nil {
		s := u.sessions.Update(sessionID(r), func(s *Session) {
			s.DiseaseError = msgNoImage
		})
		u.redirectHome(w, r, s.ID)
		return
	}
	defer file.Close()

	resp, err := u.api.PredictDisease(r.Context(), header.Filename, file)
	s := u.sessions.Update(sessionID(r), func(s *Session) {
		s.DiseaseError = ""
		if err != nil {
			s.DiseaseError = MsgDiseaseFailed
			return
		}
		s.DiseaseResult = resp
		s.DiseaseFile = header.Filename
	})
	if err != nil {
		u.logger.Warn("disease prediction failed", zap.String("filename", header.Filename), zap.Error(err))
	}
	u.redirectHome(w, r, s.ID)
}

func (u *UI) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(r.PostForm.Get("question"))
	if question == "" {
		u.redirectHome(w, r, u.sessions.Get(sessionID(r)).ID)
		return
	}

	s := u.sessions.Update(sessionID(r), func(s *Session) {
		s.Transcript = append(s.Transcript, models.ChatTurn{Role: models.RoleUser, Content: question})
	})
	req := models.ChatRequest{
		Question:      question,
		CropResult:    marshalResult(s.CropResult),
		DiseaseResult: marshalResult(s.DiseaseResult),
	}
	answer, err := u.api.Chat(r.Context(), req)
	if err != nil {
		u.logger.Warn("chat failed", zap.Error(err))
		answer = MsgChatUnavailable
	}
	u.sessions.Update(s.ID, func(s *Session) {
		s.Transcript = append(s.Transcript, models.ChatTurn{Role: models.RoleAssistant, Content: answer})
	})
	u.redirectHome(w, r, s.ID)
}

func (u *UI) handleDelete(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		http.Error(w, "invalid message index", http.StatusBadRequest)
		return
	}
	s := u.sessions.Update(sessionID(r), func(s *Session) {
		s.DeleteMessage(idx)
	})
	u.redirectHome(w, r, s.ID)
}

func (u *UI) handleClear(w http.ResponseWriter, r *http.Request) {
	s := u.sessions.Update(sessionID(r), func(s *Session) {
		s.ClearTranscript()
	})
	u.redirectHome(w, r, s.ID)
}

func (u *UI) redirectHome(w http.ResponseWriter, r *http.Request, id string) {
	setSessionCookie(w, id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// marshalResult renders a prediction as chat context; nil stays absent.
func marshalResult[T any](v *T) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
