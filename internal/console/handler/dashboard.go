package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/brief-governance/internal/domain"
	"go.uber.org/zap"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	Dashboard(ctx context.Context, actor domain.Actor) (*domain.Dashboard, error)
}

type DashboardHandler struct {
	service DashboardService
	logger  *zap.Logger
}

func NewDashboardHandler(s DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: s, logger: logger.Named("dashboard-handler")}
}

// GetStats сводка очереди и продакшна
// GET /v1/dashboard
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Dashboard(r.Context(), a)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
