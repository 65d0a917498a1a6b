package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/josz5930/CDC-Value-For-You/internal/config"
	"github.com/josz5930/CDC-Value-For-You/internal/metrics"
	"github.com/josz5930/CDC-Value-For-You/internal/profile"
	"github.com/josz5930/CDC-Value-For-You/internal/profilestore"
	"github.com/josz5930/CDC-Value-For-You/internal/session"
	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/output"
	"github.com/josz5930/CDC-Value-For-You/pkg/valuation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ProfileStore persists form input between visits.
type ProfileStore interface {
	Save(ctx context.Context, id string, in profile.Input) (string, error)
	Load(ctx context.Context, id string) (profilestore.Saved, error)
	Delete(ctx context.Context, id string) error
}

// Options configures NewHandler. Every field is optional.
type Options struct {
	Logger        *zap.Logger
	MaxUploadSize int64
	Version       string
	Store         ProfileStore
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Defaults      *profile.Input
	Wallets       *session.Wallets
	CORSOrigins   []string
	Debounce      time.Duration

	// SessionIdleTimeout and MaxSessions bound the live sessions kept in memory.
	SessionIdleTimeout time.Duration
	MaxSessions        int
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	store         ProfileStore
	metrics       *metrics.Metrics
	defaults      profile.Input
	wallets       *session.Wallets
	evaluator     *session.Session
	debounce      time.Duration

	mu          sync.Mutex
	sessions    map[string]*liveSession
	sessionTTL  time.Duration
	maxSessions int
	now         func() time.Time
}

// NewHandler constructs the HTTP handler that serves the valuation API.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	defaults := profile.Defaults()
	if opts.Defaults != nil {
		defaults = opts.Defaults.Merge(defaults)
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		store:         opts.Store,
		metrics:       opts.Metrics,
		defaults:      defaults,
		wallets:       opts.Wallets,
		evaluator:     session.New(defaults, opts.Wallets, logger),
		debounce:      opts.Debounce,
		sessions:      make(map[string]*liveSession),
		sessionTTL:    opts.SessionIdleTimeout,
		maxSessions:   opts.MaxSessions,
		now:           time.Now,
	}
	if h.sessionTTL <= 0 {
		h.sessionTTL = constants.SessionIdleTimeout
	}
	if h.maxSessions <= 0 {
		h.maxSessions = constants.MaxSessions
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Middleware)
	r.Use(requestLogger{logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)

		r.Get("/valuate", h.handleValuateQuery)
		r.Post("/valuate", h.handleValuate)
		r.Post("/spend", h.handleSpend)
		r.Post("/simulate", h.handleSimulate)
		r.Post("/loss", h.handleLoss)
		r.Post("/share", h.handleShare)

		// Configuration upload and export
		r.Post("/config/valuate", h.handleConfigValuate)
		r.Post("/config/export", h.handleConfigExport)

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", h.handleProfileCreate)
			r.Get("/{id}", h.handleProfileGet)
			r.Put("/{id}", h.handleProfilePut)
			r.Delete("/{id}", h.handleProfileDelete)
		})

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.handleSessionLatest)
			r.Post("/snapshots", h.handleSessionSubmit)
		})
	})

	return r
}

type valuationResponse struct {
	Profile valuation.UsageProfile  `json:"profile"`
	Result  valuation.Result        `json:"result"`
	Summary string                  `json:"summary"`
	Wallets *valuation.WalletReport `json:"wallets,omitempty"`
	Share   string                  `json:"share"`
}

type errorResponse struct {
	Error  string               `json:"error"`
	Fields []profile.FieldError `json:"fields,omitempty"`
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleValuate(w http.ResponseWriter, r *http.Request) {
	var in profile.Input
	if !h.decodeBody(w, r, &in, "server.handleValuate") {
		return
	}
	h.valuate(w, in, "server.handleValuate")
}

func (h *handler) handleValuateQuery(w http.ResponseWriter, r *http.Request) {
	h.valuate(w, profile.DecodeQuery(h.defaults, r.URL.Query()), "server.handleValuateQuery")
}

func (h *handler) valuate(w http.ResponseWriter, in profile.Input, op string) {
	start := time.Now()
	out := h.evaluator.Evaluate(session.Snapshot{Input: in, At: start})
	h.metrics.ObserveValuation(time.Since(start), out.Err)

	if out.Err != nil {
		h.respondInvalid(w, out.Err, op)
		return
	}

	h.logger.Debug("valuation computed",
		zap.String("op", op),
		zap.Float64("minValue", out.Result.MinValue),
		zap.Float64("maxValue", out.Result.MaxValue),
	)
	h.writeJSON(w, http.StatusOK, newValuationResponse(out))
}

func newValuationResponse(out session.Outcome) valuationResponse {
	report := output.NewReport(out.Result, out.Wallets)
	return valuationResponse{
		Profile: out.Profile,
		Result:  report.Result,
		Summary: report.Summary,
		Wallets: report.Wallets,
		Share:   profile.EncodeQuery(profile.FromProfile(out.Profile)).Encode(),
	}
}

type spendRequest struct {
	PurchaseAmount float64             `json:"purchaseAmount"`
	Wallet         string              `json:"wallet,omitempty"`
	Units          []denomination.Unit `json:"units,omitempty"`
}

type spendResponse struct {
	PurchaseAmount float64 `json:"purchaseAmount"`
	TotalValueUsed float64 `json:"totalValueUsed"`
	denomination.Outcome
}

func (h *handler) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if !h.decodeBody(w, r, &req, "server.handleSpend") {
		return
	}
	units, ok := h.resolveUnits(w, req.Wallet, req.Units, "server.handleSpend")
	if !ok {
		return
	}

	outcome := denomination.Spend(req.PurchaseAmount, units)
	h.metrics.ObserveSpend(outcome.TotalLoss)

	h.writeJSON(w, http.StatusOK, spendResponse{
		PurchaseAmount: req.PurchaseAmount,
		TotalValueUsed: outcome.TotalValueUsed(),
		Outcome:        outcome,
	})
}

type simulateRequest struct {
	Wallet    string              `json:"wallet,omitempty"`
	Units     []denomination.Unit `json:"units,omitempty"`
	Purchases []float64           `json:"purchases"`
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !h.decodeBody(w, r, &req, "server.handleSimulate") {
		return
	}
	units, ok := h.resolveUnits(w, req.Wallet, req.Units, "server.handleSimulate")
	if !ok {
		return
	}

	sim := denomination.Simulate(units, req.Purchases)
	h.metrics.ObserveSpend(sim.TotalLoss)
	h.writeJSON(w, http.StatusOK, sim)
}

// resolveUnits prefers explicit units and falls back to a named preset.
func (h *handler) resolveUnits(w http.ResponseWriter, wallet string, units []denomination.Unit, op string) ([]denomination.Unit, bool) {
	if len(units) > 0 {
		if err := checkUnits(units); err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return nil, false
		}
		return units, true
	}
	if wallet == "" {
		return nil, true
	}
	if h.wallets != nil {
		switch wallet {
		case denomination.PresetRegular:
			return denomination.CloneUnits(h.wallets.Regular), true
		case denomination.PresetSupermarket:
			return denomination.CloneUnits(h.wallets.Supermarket), true
		}
	}
	preset, ok := denomination.Preset(wallet)
	if !ok {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("unknown wallet %q", wallet), op)
		return nil, false
	}
	return preset, true
}

// checkUnits bounds the work a caller-supplied voucher supply can cause: every
// spend step consumes one voucher, so the total quantity caps the iterations.
func checkUnits(units []denomination.Unit) error {
	total := 0
	for _, u := range units {
		if u.Quantity <= 0 {
			continue
		}
		if u.FaceValue < constants.MinFaceValue {
			return fmt.Errorf("face value %v is below the minimum of %.2f", u.FaceValue, constants.MinFaceValue)
		}
		if u.Quantity > constants.MaxWalletUnits-total {
			return fmt.Errorf("wallet exceeds the limit of %d vouchers", constants.MaxWalletUnits)
		}
		total += u.Quantity
	}
	return nil
}

type lossRequest struct {
	SpendAmount  float64 `json:"spendAmount"`
	Denomination float64 `json:"denomination"`
}

func (h *handler) handleLoss(w http.ResponseWriter, r *http.Request) {
	var req lossRequest
	if !h.decodeBody(w, r, &req, "server.handleLoss") {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{
		"loss": denomination.Loss(req.SpendAmount, req.Denomination),
	})
}

func (h *handler) handleShare(w http.ResponseWriter, r *http.Request) {
	var in profile.Input
	if !h.decodeBody(w, r, &in, "server.handleShare") {
		return
	}
	query := profile.EncodeQuery(in.Merge(h.defaults)).Encode()
	h.writeJSON(w, http.StatusOK, map[string]string{
		"query": query,
		"url":   "/?" + query,
	})
}

type configValuationResponse struct {
	valuationResponse
	Warnings []string `json:"warnings,omitempty"`
	Duration string   `json:"duration"`
}

// handleConfigValuate values the defaults of an uploaded configuration file
// using that file's wallets.
func (h *handler) handleConfigValuate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigValuate"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(&buf)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	wallets := &session.Wallets{Regular: cfg.RegularWallet(), Supermarket: cfg.SupermarketWallet()}
	out := session.New(cfg.DefaultInput(), wallets, h.logger).Evaluate(session.Snapshot{At: start})
	h.metrics.ObserveValuation(time.Since(start), out.Err)
	if out.Err != nil {
		h.respondInvalid(w, out.Err, op)
		return
	}

	h.writeJSON(w, http.StatusOK, configValuationResponse{
		valuationResponse: newValuationResponse(out),
		Warnings:          cfg.ValidateConfiguration(),
		Duration:          time.Since(start).String(),
	})
}

// handleConfigExport turns posted defaults and wallets into a YAML configuration file.
func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"

	var cfg config.Configuration
	if !h.decodeBody(w, r, &cfg, op) {
		return
	}
	cfg.Defaults = cfg.Defaults.Merge(h.defaults)

	yamlBytes, err := yaml.Marshal(&cfg)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

type profileResponse struct {
	ID      string        `json:"id"`
	Input   profile.Input `json:"input"`
	SavedAt *time.Time    `json:"savedAt,omitempty"`
}

func (h *handler) handleProfileCreate(w http.ResponseWriter, r *http.Request) {
	h.saveProfile(w, r, "", http.StatusCreated, "server.handleProfileCreate")
}

func (h *handler) handleProfilePut(w http.ResponseWriter, r *http.Request) {
	h.saveProfile(w, r, chi.URLParam(r, "id"), http.StatusOK, "server.handleProfilePut")
}

func (h *handler) saveProfile(w http.ResponseWriter, r *http.Request, id string, status int, op string) {
	if !h.requireStore(w, op) {
		return
	}
	var in profile.Input
	if !h.decodeBody(w, r, &in, op) {
		return
	}

	id, err := h.store.Save(r.Context(), id, in)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.writeJSON(w, status, profileResponse{ID: id, Input: in})
}

func (h *handler) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProfileGet"
	if !h.requireStore(w, op) {
		return
	}

	saved, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, profilestore.ErrNotFound) {
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
		return
	}
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	savedAt := saved.SavedAt
	h.writeJSON(w, http.StatusOK, profileResponse{
		ID:      saved.ID,
		Input:   saved.Input.Merge(h.defaults),
		SavedAt: &savedAt,
	})
}

func (h *handler) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProfileDelete"
	if !h.requireStore(w, op) {
		return
	}

	err := h.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, profilestore.ErrNotFound) {
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
		return
	}
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) requireStore(w http.ResponseWriter, op string) bool {
	if h.store == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "profile storage is not configured", op)
		return false
	}
	return true
}

type snapshotRequest struct {
	Input profile.Input `json:"input"`
	At    time.Time     `json:"at"`
}

type sessionResponse struct {
	Snapshot session.Snapshot `json:"snapshot"`
	valuationResponse
	Error  string               `json:"error,omitempty"`
	Fields []profile.FieldError `json:"fields,omitempty"`
}

// handleSessionSubmit queues a snapshot for the session's debouncer, or values
// it at once when sync=true.
func (h *handler) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionSubmit"

	var req snapshotRequest
	if !h.decodeBody(w, r, &req, op) {
		return
	}
	snap := session.Snapshot{Input: req.Input, At: req.At}
	if snap.At.IsZero() {
		snap.At = time.Now()
	}

	live := h.liveSession(chi.URLParam(r, "id"))
	if r.URL.Query().Get("sync") == "true" {
		start := time.Now()
		out, stored := live.session.Submit(r.Context(), snap)
		h.metrics.ObserveValuation(time.Since(start), out.Err)
		status := http.StatusOK
		if !stored {
			status = http.StatusConflict
		}
		h.writeJSON(w, status, h.sessionPayload(out))
		return
	}

	live.debouncer.Trigger(snap)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) handleSessionLatest(w http.ResponseWriter, r *http.Request) {
	live, ok := h.lookupSession(chi.URLParam(r, "id"))
	if !ok {
		h.respondErrorWithOp(w, http.StatusNotFound, "session not found", "server.handleSessionLatest")
		return
	}

	out, ok := live.session.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, h.sessionPayload(out))
}

func (h *handler) sessionPayload(out session.Outcome) sessionResponse {
	resp := sessionResponse{Snapshot: out.Snapshot}
	if out.Err != nil {
		resp.Error = out.Err.Error()
		var verr *profile.ValidationError
		if errors.As(out.Err, &verr) {
			resp.Fields = verr.Fields
		}
		return resp
	}
	resp.valuationResponse = newValuationResponse(out)
	return resp
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondInvalid(w http.ResponseWriter, err error, op string) {
	resp := errorResponse{Error: err.Error()}
	var verr *profile.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	h.logger.Info("valuation rejected",
		zap.String("op", op),
		zap.Error(err),
	)
	h.writeJSON(w, http.StatusBadRequest, resp)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
