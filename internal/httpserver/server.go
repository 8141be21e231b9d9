package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chefbot/internal/bot"
	"chefbot/internal/cache"
	"chefbot/internal/metrics"
	"chefbot/internal/repo"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
)

// Handlers groups optional HTTP handlers to mount.
type Handlers struct {
	Webhook http.Handler
}

// Dependencies exposes core dependencies to handlers that need them.
type Dependencies struct {
	Store repo.Store
	Redis *cache.Redis
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	handlers   Handlers
	deps       Dependencies
	basePath   string
}

// New creates a new HTTP server listening on addr with status, health,
// metrics, webhook and admin endpoints.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, handlers Handlers, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		handlers: handlers,
		basePath: normaliseBasePath(basePath),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", server.handleHome)
	mux.HandleFunc("/healthz", server.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/admin/restaurants", server.handleRestaurants)
	mux.HandleFunc("/admin/restaurants/", server.handleRestaurantMenu)

	if handlers.Webhook != nil {
		mux.Handle("/webhook", handlers.Webhook)
	}

	handler := mountWithBasePath(server.basePath, mux)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// SetDependencies makes dependencies accessible to handlers.
func (s *Server) SetDependencies(deps Dependencies) {
	s.deps = deps
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<h1>🤖 ChefBot</h1>
<p>Status: ✅ Running</p>
<p>WhatsApp webhook ready at /webhook</p>
`))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type createRestaurantRequest struct {
	Name         string `json:"name"`
	ChannelID    string `json:"channel_id"`
	OwnerContact string `json:"owner_contact"`
	Secret       string `json:"secret"`
}

func (s *Server) handleRestaurants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRestaurants(w, r)
	case http.MethodPost:
		s.createRestaurant(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listRestaurants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.deps.Store.ListTenants(r.Context())
	if err != nil {
		s.fail(w, "list restaurants", err)
		return
	}

	type restaurantView struct {
		ID           string    `json:"id"`
		ChannelID    string    `json:"channel_id"`
		Name         string    `json:"name"`
		OwnerContact string    `json:"owner_contact"`
		Active       bool      `json:"active"`
		CreatedAt    time.Time `json:"created_at"`
	}
	views := make([]restaurantView, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, restaurantView{
			ID:           t.ID,
			ChannelID:    t.ChannelID,
			Name:         t.Name,
			OwnerContact: t.OwnerContact,
			Active:       t.Active,
			CreatedAt:    t.CreatedAt,
		})
	}
	writeJSON(w, map[string]any{"status": "ok", "restaurants": views})
}

func (s *Server) createRestaurant(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateRequest(r)
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	if missing := missingFields(req); len(missing) > 0 {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Missing required fields: " + strings.Join(missing, ", "),
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
	if err != nil {
		s.fail(w, "hash secret", err)
		return
	}

	tenant, err := s.deps.Store.CreateTenant(r.Context(), repo.NewTenant{
		Name:         req.Name,
		ChannelID:    req.ChannelID,
		OwnerContact: req.OwnerContact,
		SecretHash:   string(hash),
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateChannelID) {
			writeJSONStatus(w, http.StatusConflict, map[string]string{
				"status":  "error",
				"message": "channel id already registered",
			})
			return
		}
		s.fail(w, "create restaurant", err)
		return
	}

	seeded := 0
	for _, item := range bot.DefaultMenu() {
		if _, err := s.deps.Store.UpsertMenuItem(r.Context(), tenant.ID, item.Name, item.Price, item.Glyph); err != nil {
			s.logger.Error("seed menu item failed", "error", err, "item", item.Name)
			continue
		}
		seeded++
	}

	s.invalidateMenu(r.Context(), tenant.ChannelID)
	s.logger.Info("restaurant created", "restaurant_id", tenant.ID, "name", tenant.Name)

	writeJSON(w, map[string]any{
		"status":           "ok",
		"message":          fmt.Sprintf("Restaurant %q created successfully", tenant.Name),
		"restaurant_id":    tenant.ID,
		"menu_items_added": seeded,
	})
}

type menuItemRequest struct {
	Name  string `json:"name"`
	Price *int64 `json:"price"`
	Glyph string `json:"glyph"`
}

// handleRestaurantMenu serves /admin/restaurants/{id}/menu.
func (s *Server) handleRestaurantMenu(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/restaurants/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "menu" {
		http.NotFound(w, r)
		return
	}
	tenantID := parts[0]

	switch r.Method {
	case http.MethodGet:
		items, err := s.deps.Store.ListAvailableMenuItems(r.Context(), tenantID)
		if err != nil {
			s.fail(w, "list menu", err)
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "items": menuViews(items)})

	case http.MethodPost:
		var req menuItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid json body"})
			return
		}
		if req.Name == "" || req.Price == nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Missing required fields: name, price"})
			return
		}
		item, err := s.deps.Store.UpsertMenuItem(r.Context(), tenantID, req.Name, *req.Price, req.Glyph)
		if err != nil {
			if errors.Is(err, repo.ErrInvalidPrice) {
				writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
				return
			}
			s.fail(w, "upsert menu item", err)
			return
		}
		s.invalidateMenuByTenant(r.Context(), tenantID)
		writeJSON(w, map[string]any{"status": "ok", "item_id": item.ID})

	case http.MethodPatch:
		name := r.URL.Query().Get("name")
		var req menuItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid json body"})
			return
		}
		if name == "" {
			name = req.Name
		}
		if name == "" || req.Price == nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Missing required fields: name, price"})
			return
		}
		ok, err := s.deps.Store.UpdateMenuItemPrice(r.Context(), tenantID, name, *req.Price)
		if err != nil {
			if errors.Is(err, repo.ErrInvalidPrice) {
				writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
				return
			}
			s.fail(w, "update menu price", err)
			return
		}
		if !ok {
			writeJSONStatus(w, http.StatusNotFound, map[string]string{"status": "error", "message": "menu item not found"})
			return
		}
		s.invalidateMenuByTenant(r.Context(), tenantID)
		writeJSON(w, map[string]string{"status": "ok"})

	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Missing required fields: name"})
			return
		}
		ok, err := s.deps.Store.RemoveMenuItem(r.Context(), tenantID, name)
		if err != nil {
			s.fail(w, "remove menu item", err)
			return
		}
		if !ok {
			writeJSONStatus(w, http.StatusNotFound, map[string]string{"status": "error", "message": "menu item not found"})
			return
		}
		s.invalidateMenuByTenant(r.Context(), tenantID)
		writeJSON(w, map[string]string{"status": "ok"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func menuViews(items []repo.MenuItem) []map[string]any {
	views := make([]map[string]any, 0, len(items))
	for _, item := range items {
		views = append(views, map[string]any{
			"id":    item.ID,
			"name":  item.Name,
			"price": item.Price,
			"glyph": item.Glyph,
		})
	}
	return views
}

// decodeCreateRequest accepts either a JSON body or query parameters, the
// way the original admin surface did.
func decodeCreateRequest(r *http.Request) (createRestaurantRequest, error) {
	var req createRestaurantRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid json body")
		}
		return req, nil
	}
	q := r.URL.Query()
	req.Name = q.Get("name")
	req.ChannelID = q.Get("channel_id")
	req.OwnerContact = q.Get("owner_contact")
	req.Secret = q.Get("secret")
	return req, nil
}

func missingFields(req createRestaurantRequest) []string {
	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.ChannelID == "" {
		missing = append(missing, "channel_id")
	}
	if req.OwnerContact == "" {
		missing = append(missing, "owner_contact")
	}
	if req.Secret == "" {
		missing = append(missing, "secret")
	}
	return missing
}

func (s *Server) invalidateMenu(ctx context.Context, channelID string) {
	if err := bot.InvalidateMenuCache(ctx, s.deps.Redis, channelID); err != nil {
		s.logger.Warn("menu cache invalidation failed", "error", err, "channel_id", channelID)
	}
}

func (s *Server) invalidateMenuByTenant(ctx context.Context, tenantID string) {
	if s.deps.Redis == nil {
		return
	}
	tenants, err := s.deps.Store.ListTenants(ctx)
	if err != nil {
		s.logger.Warn("menu cache invalidation lookup failed", "error", err)
		return
	}
	for _, t := range tenants {
		if t.ID == tenantID {
			s.invalidateMenu(ctx, t.ChannelID)
			return
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	if s.metrics != nil {
		s.metrics.Errors.WithLabelValues("admin").Inc()
	}
	writeJSONStatus(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
