package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/focusmate/settlement/api/transport"
	"github.com/focusmate/settlement/pkg/httpcontext"
	"github.com/focusmate/settlement/repository"
	historyUC "github.com/focusmate/settlement/usecase/history"
)

type HistoryHandler struct {
	baseHandler
	uc *historyUC.UseCase
}

func NewHistoryHandler(uc *historyUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List completed tasks
// @Tags completed
// @Router /api/v1/completed [get]
func (h *HistoryHandler) GetCompleted(ctx *fasthttp.RequestCtx) {
	owner := h.ownerEmail(ctx)
	if owner == "" {
		return
	}

	filter := repository.LedgerFilter{
		OwnerEmail: owner,
		Limit:      parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset:     parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	records, err := h.uc.ListCompleted(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, records)
}

// @Summary Total reward points earned
// @Tags completed
// @Router /api/v1/completed/points [get]
func (h *HistoryHandler) GetTotalPoints(ctx *fasthttp.RequestCtx) {
	owner := h.ownerEmail(ctx)
	if owner == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	total, err := h.uc.TotalPoints(stdCtx, owner)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.PointsResponse{
		OwnerEmail:  owner,
		TotalPoints: total,
	})
}
