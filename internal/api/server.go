// Package api exposes the bill, investment and gold rate operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gitlab.com/yelinaung/jewellery-tracker/internal/bills"
	"gitlab.com/yelinaung/jewellery-tracker/internal/investments"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BillIngester turns uploads into drafts.
type BillIngester interface {
	Ingest(ctx context.Context, up bills.Upload) (*bills.Result, error)
}

// InvestmentStore manages confirmed investments.
type InvestmentStore interface {
	Create(ctx context.Context, in investments.Input) (*models.Investment, error)
	Get(ctx context.Context, id string) (*models.Investment, bool, error)
	List(ctx context.Context) ([]models.Investment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RateService serves gold rate snapshots.
type RateService interface {
	GetToday(ctx context.Context) (*models.DailyRate, error)
	SetTodayManual(ctx context.Context, payload map[string]any) (*models.DailyRate, error)
	History(ctx context.Context) ([]models.DailyRate, error)
	Latest(ctx context.Context) (*models.DailyRate, error)
}

// Options configures the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	UploadRatePerMin   int
	MaxUploadBytes     int64
}

// Server holds the handlers' dependencies.
type Server struct {
	bills       BillIngester
	investments InvestmentStore
	rates       RateService
	opts        Options
	now         func() time.Time
}

// NewServer creates a Server.
func NewServer(b BillIngester, inv InvestmentStore, rates RateService, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.UploadRatePerMin <= 0 {
		opts.UploadRatePerMin = 20
	}
	return &Server{bills: b, investments: inv, rates: rates, opts: opts, now: time.Now}
}

// Router registers every route on a mux router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.StrictSlash(false)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	upload := RateLimit(s.opts.UploadRatePerMin)(http.HandlerFunc(s.uploadBill))
	r.Handle("/bills/upload", upload).Methods(http.MethodPost)

	inv := r.PathPrefix("/investments").Subrouter()
	for _, root := range []string{"", "/"} {
		inv.HandleFunc(root, s.listInvestments).Methods(http.MethodGet)
		inv.HandleFunc(root, s.createInvestment).Methods(http.MethodPost)
	}
	inv.HandleFunc("/summary", s.investmentSummary).Methods(http.MethodGet)
	inv.HandleFunc("/chart.png", s.investmentChart).Methods(http.MethodGet)
	inv.HandleFunc("/{id}", s.getInvestment).Methods(http.MethodGet)
	inv.HandleFunc("/{id}", s.deleteInvestment).Methods(http.MethodDelete)

	rates := r.PathPrefix("/rates/gold").Subrouter()
	rates.HandleFunc("/today", s.goldToday).Methods(http.MethodGet)
	rates.HandleFunc("/today/manual", s.goldTodayManual).Methods(http.MethodPost)
	rates.HandleFunc("/history", s.goldHistory).Methods(http.MethodGet)
	rates.HandleFunc("/latest", s.goldLatest).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = CORS(s.opts.CORSAllowedOrigins)(h)
	h = Logger(h)
	h = RequestID(h)
	h = Recovery(h)
	return otelhttp.NewHandler(h, "jewellery-tracker")
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
