package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/focusmate/settlement/api/handler"
)

type Handlers struct {
	Task       *apiHandler.TaskHandler
	Settlement *apiHandler.SettlementHandler
	History    *apiHandler.HistoryHandler
	Reminder   *apiHandler.ReminderHandler
	Health     *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Active tasks
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.GET("/api/v1/tasks/due-soon", authMiddleware(handlers.Task.GetDueSoon))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	// Settlement
	r.POST("/api/v1/tasks/{id}/complete", authMiddleware(handlers.Settlement.CompleteTask))

	// Completed ledger
	r.GET("/api/v1/completed", authMiddleware(handlers.History.GetCompleted))
	r.GET("/api/v1/completed/points", authMiddleware(handlers.History.GetTotalPoints))

	// Reminders (manual trigger)
	r.POST("/api/v1/reminders/run", authMiddleware(handlers.Reminder.RunSweep))

	return r
}
