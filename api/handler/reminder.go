package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/focusmate/settlement/api/transport"
	"github.com/focusmate/settlement/internal/services"
	"github.com/focusmate/settlement/pkg/httpcontext"
)

type ReminderHandler struct {
	baseHandler
	sweeper *services.ReminderSweeper
}

func NewReminderHandler(sweeper *services.ReminderSweeper, adapter *httpcontext.Adapter, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sweeper:     sweeper,
	}
}

// @Summary Trigger a reminder sweep
// @Tags reminders
// @Router /api/v1/reminders/run [post]
func (h *ReminderHandler) RunSweep(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	fired, ran := h.sweeper.RunOnce(stdCtx)
	h.respondSuccess(ctx, http.StatusOK, transport.SweepResponse{
		Notifications: fired,
		Ran:           ran,
	})
}
