package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/services"
)

// Services bundles the services the API routes call.
type Services struct {
	Users        services.UserService
	Reports      services.ReportService
	Issues       services.IssueService
	Solutions    services.SolutionService
	Tasks        services.TaskService
	Requests     services.RequestService
	Prompts      services.PromptService
	FileVersions services.FileVersionService
	Dashboard    services.DashboardService
}

// RegisterAPIRoutes registers every /api route on mux.
// scope attaches the request's database connection.
func RegisterAPIRoutes(
	mux *http.ServeMux,
	svc Services,
	authMiddleware *auth.Middleware,
	guard *auth.RouteGuard,
	sessions *auth.SessionStore,
	scope RouteMiddleware,
	logger *zap.Logger,
) {
	NewAuthHandler(svc.Users, sessions, logger).RegisterRoutes(mux, authMiddleware, scope)
	NewUsersHandler(svc.Users, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
	NewDashboardHandler(svc.Dashboard, logger).RegisterRoutes(mux, authMiddleware, guard, scope)

	NewRecordHandler[models.Report]("reports", svc.Reports, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
	NewRecordHandler[models.Issue]("issues", svc.Issues, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
	NewRecordHandler[models.Solution]("solutions", svc.Solutions, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
	NewRecordHandler[models.Task]("tasks", svc.Tasks, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
	NewRecordHandler[models.Request]("requests", svc.Requests, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
	NewRecordHandler[models.Prompt]("prompts", svc.Prompts, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
	NewRecordHandler[models.FileVersion]("file-versions", svc.FileVersions, logger).RegisterRoutes(mux, authMiddleware, guard, scope)
}
