package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/brief-governance/internal/console/handler"
	"github.com/xela07ax/brief-governance/internal/infra"
	"github.com/xela07ax/brief-governance/internal/infra/auth"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router   *chi.Mux
	logger   *zap.Logger
	metrics  *infra.Metrics
	gatherer prometheus.Gatherer

	// Интерфейс для проверки токенов (RS256)
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler   *handler.AuthHandler      // /auth/token
	briefHandler  *handler.BriefHandler     // /v1/briefs
	policyHandler *handler.PolicyHandler    // /v1/policy
	dashHandler   *handler.DashboardHandler // /v1/dashboard
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	metrics *infra.Metrics,
	gatherer prometheus.Gatherer,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	briefH *handler.BriefHandler,
	policyH *handler.PolicyHandler,
	dashH *handler.DashboardHandler,
) *ConsoleServer {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		metrics:       metrics,
		gatherer:      gatherer,
		authValidator: validator,
		authHandler:   authH,
		briefHandler:  briefH,
		policyHandler: policyH,
		dashHandler:   dashH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Post("/auth/token", s.authHandler.Login)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if s.gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		r.Get("/v1/dashboard", s.dashHandler.GetStats)

		// Брифы: контент, переходы, продакшн
		r.Route("/v1/briefs", func(r chi.Router) {
			r.Get("/", s.briefHandler.List)
			r.Post("/", s.briefHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.briefHandler.Get)
				r.Patch("/", s.briefHandler.Edit)
				r.Delete("/", s.briefHandler.Delete)

				r.Get("/audit", s.briefHandler.Audit)          // dry-run AI Auditor
				r.Get("/policy", s.briefHandler.PolicyPreview) // dry-run Policy Engine
				r.Get("/events", s.briefHandler.Events)

				r.Post("/submit", s.briefHandler.Submit)
				r.Post("/decide", s.briefHandler.Decide)
				r.Post("/cancel", s.briefHandler.Cancel)

				r.Get("/production", s.briefHandler.ProductionTask)
				r.Post("/production/status", s.briefHandler.AdvanceProduction)
			})
		})

		// Policy Engine: dry-run и пороги
		r.Route("/v1/policy", func(r chi.Router) {
			r.Post("/check", s.policyHandler.Check)
			r.Get("/settings", s.policyHandler.Settings)
			r.Put("/settings/{key}", s.policyHandler.Update)
			r.Delete("/settings/{key}", s.policyHandler.Reset)
		})
	})
}

// observe пишет latency в гистограмму и access log. Роут берем шаблоном, чтобы не плодить лейблы по id.
func (s *ConsoleServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = r.Method + " " + rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
		s.logger.Debug("request served",
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
