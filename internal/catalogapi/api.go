package catalogapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imamik/hostup/internal/recipe"
)

// Version is reported by the index route.
const Version = "1.0.0"

var languages = map[string]bool{"en": true, "ru": true}

// Script is the public description of one recipe.
type Script struct {
	ScriptName     string   `json:"script_name"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Software       string   `json:"software"`
	RequiresDomain bool     `json:"requires_domain"`
	Variants       []string `json:"variants,omitempty"`
	// Secondary explains the optional second domain, when there is one.
	Secondary string `json:"secondary_domain,omitempty"`
}

type listResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Scripts []Script `json:"scripts"`
}

type scriptResponse struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Result  *Script `json:"result"`
}

// API serves a catalog.
type API struct {
	catalog  *recipe.Catalog
	log      logr.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// New returns an API for cat.
func New(cat *recipe.Catalog, log logr.Logger) *API {
	a := &API{
		catalog:  cat,
		log:      log,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostup",
			Subsystem: "catalog_api",
			Name:      "requests_total",
			Help:      "Catalog API requests by route and status code.",
		}, []string{"route", "code"}),
	}
	a.registry.MustRegister(a.requests)
	return a
}

// Handler returns the router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(a.instrument)

	r.Get("/", a.index)
	r.Get("/health", a.health)
	r.Get("/api/scripts_list", a.scriptsList)
	r.Get("/api/script/{script_name}", a.script)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
	})
	return r
}

func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		a.requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		a.log.V(1).Info("request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "requestID", middleware.GetReqID(r.Context()))
	})
}

func (a *API) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "hostup recipe catalog API",
		"version": Version,
		"endpoints": map[string]string{
			"/":                         "API information (this page)",
			"/health":                   "Health check endpoint",
			"/api/scripts_list":         "List all available recipes (supports ?lang=ru|en)",
			"/api/script/<script_name>": "Get information about a single recipe by script_name (supports ?lang=ru|en)",
		},
	})
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "API is running"})
}

func (a *API) scriptsList(w http.ResponseWriter, r *http.Request) {
	lang := Language(r.URL.Query().Get("lang"))
	scripts := []Script{}
	for _, rec := range a.catalog.All() {
		scripts = append(scripts, Describe(rec, lang))
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Count: len(scripts), Scripts: scripts})
}

func (a *API) script(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "script_name")
	rec, err := a.catalog.Get(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, scriptResponse{
			Error: fmt.Sprintf("Script with script_name %q not found", name),
		})
		return
	}
	s := Describe(rec, Language(r.URL.Query().Get("lang")))
	writeJSON(w, http.StatusOK, scriptResponse{Success: true, Result: &s})
}

// Language maps a requested language to a supported one.
func Language(lang string) string {
	if languages[lang] {
		return lang
	}
	return recipe.FallbackLanguage
}

// Describe returns the public description of r in lang.
func Describe(r *recipe.Recipe, lang string) Script {
	s := Script{
		ScriptName:     r.Name,
		Name:           r.Title.Get(lang),
		Description:    r.Description.Get(lang),
		Software:       r.Software,
		RequiresDomain: true,
	}
	if r.ArgKind() == recipe.ArgVariant {
		s.Variants = r.Database.EngineNames()
	}
	if r.Secondary != nil {
		s.Secondary = r.Secondary.Purpose.Get(lang)
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
