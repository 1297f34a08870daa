package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/focusmate/settlement/api/transport"
	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/pkg/httpcontext"
	settlementUC "github.com/focusmate/settlement/usecase/settlement"
)

type SettlementHandler struct {
	baseHandler
	uc *settlementUC.UseCase
}

func NewSettlementHandler(uc *settlementUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SettlementHandler {
	return &SettlementHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Complete a task and award reward points
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [post]
func (h *SettlementHandler) CompleteTask(ctx *fasthttp.RequestCtx) {
	owner := h.ownerEmail(ctx)
	if owner == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	points, err := h.uc.Settle(stdCtx, id, owner)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SettleResponse{PointsAwarded: points})
}
