package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/catalog"
	"github.com/tuanvumaihuynh/sale-ledger/internal/config"
	"github.com/tuanvumaihuynh/sale-ledger/internal/http/apierr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/http/metric"
	"github.com/tuanvumaihuynh/sale-ledger/internal/http/middleware"
	"github.com/tuanvumaihuynh/sale-ledger/internal/http/swagger"
	"github.com/tuanvumaihuynh/sale-ledger/internal/ledger"
	"github.com/tuanvumaihuynh/sale-ledger/internal/sale"
	"github.com/tuanvumaihuynh/sale-ledger/pkg/validator"
)

var tracer = otel.Tracer("internal/http")

// Service represents the HTTP service.
type Service struct {
	cfg       config.HTTP
	logger    *slog.Logger
	metrics   *metric.Metrics
	validator validator.Validator

	catalog     catalog.Catalog
	coordinator *sale.Coordinator
	ledger      ledger.Store
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	v validator.Validator,
	cat catalog.Catalog,
	coordinator *sale.Coordinator,
	ledgerStore ledger.Store,
) *Service {
	return &Service{
		cfg:         cfg,
		logger:      log.With(slog.String("service", "http")),
		metrics:     metric.New(),
		validator:   v,
		catalog:     cat,
		coordinator: coordinator,
		ledger:      ledgerStore,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return s.RunWithServer(ctx, r)
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	productHdl := newProductHandler(s)
	saleHdl := newSaleHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHdl.listProducts)
			r.Post("/", productHdl.createProduct)
			r.Get("/{productID}", productHdl.getProduct)
			r.Put("/{productID}", productHdl.updateProduct)
			r.Post("/{productID}/restock", productHdl.restockProduct)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", saleHdl.listSales)
			r.Post("/", saleHdl.createSale)
			r.Get("/{saleID}", saleHdl.getSale)
		})

		r.Get("/reports/daily", saleHdl.dailyReport)
	})

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. Decode failures surface as validation errors, not 500s.
func (s *Service) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.ValidationErr.WrapParent(err)
	}
	return s.validator.Validate(dst)
}

func (s *Service) respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding response",
			slog.Any("error", err))
	}
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}
