package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/yukikurage/org-access-api/internal/constants"
	"github.com/yukikurage/org-access-api/internal/handlers"
	"github.com/yukikurage/org-access-api/internal/logger"
	"github.com/yukikurage/org-access-api/internal/metrics"
	"github.com/yukikurage/org-access-api/internal/middleware"
	"github.com/yukikurage/org-access-api/internal/password"
	"github.com/yukikurage/org-access-api/internal/repository"
	"github.com/yukikurage/org-access-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// routerOptions holds everything setupRouter needs besides the database.
type routerOptions struct {
	ServiceName         string
	SessionStore        sessions.Store
	Logger              *zap.Logger
	Hasher              *password.Hasher
	RequestTimeout      time.Duration
	InvitationTTL       time.Duration
	SetDealerMaxRetries uint
	CORSAllowedOrigins  []string
}

// setupRouter wires repositories, services and handlers and returns the
// HTTP handler for the whole API.
func setupRouter(db *gorm.DB, opts routerOptions) http.Handler {
	// Repositories
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Services
	authService := services.NewAuthService(userRepo, opts.Hasher)
	externalAuthService := services.NewExternalAuthService(userRepo, opts.Hasher)
	assignmentService := services.NewAssignmentService(assignmentRepo, orgRepo, userRepo, opts.SetDealerMaxRetries)
	userService := services.NewUserService(userRepo, assignmentRepo, opts.Hasher)
	orgService := services.NewOrganizationService(orgRepo, assignmentRepo, assignmentService)
	invitationService := services.NewInvitationService(invitationRepo, orgRepo, opts.InvitationTTL)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService, assignmentService)
	orgHandler := handlers.NewOrganizationHandler(orgService, assignmentService)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	externalHandler := handlers.NewExternalAuthHandler(externalAuthService)
	healthHandler := handlers.NewHealthHandler(db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(opts.Logger))
	r.Use(metrics.NewHTTPMetrics(opts.ServiceName).Middleware())
	r.Use(middleware.RequestTimeout(opts.RequestTimeout))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	// Org-app routes (no console session)
	external := api.Group("/external")
	{
		external.POST("/authenticate", externalHandler.Authenticate)
		external.GET("/validate-invite", externalHandler.ValidateInvite)
	}
	invitations := api.Group("/invitations")
	{
		invitations.GET("/:token", invitationHandler.GetInvitation)
		invitations.POST("/:token/accept", invitationHandler.AcceptInvitation)
	}

	// Console routes
	console := api.Group("")
	console.Use(sessions.Sessions(constants.SessionCookieName, opts.SessionStore))
	{
		auth := console.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(authService), authHandler.GetCurrentUser)
			auth.PATCH("/me", middleware.RequireAuth(authService), authHandler.UpdateProfile)
		}

		protected := console.Group("")
		protected.Use(middleware.RequireAuth(authService))

		users := protected.Group("/users")
		users.Use(middleware.RequireAdmin())
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		protected.GET("/dealers", middleware.RequireOrganizationManagers(), userHandler.ListDealers)
		protected.GET("/me/organizations", orgHandler.ListMyOrganizations)

		canAccess := middleware.RequireOrganizationAccess(assignmentService)
		canManage := middleware.RequireOrganizationManager(assignmentService)

		orgs := protected.Group("/organizations")
		{
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.POST("", middleware.RequireOrganizationManagers(), orgHandler.CreateOrganization)
			orgs.GET("/:id", canAccess, orgHandler.GetOrganization)
			orgs.PATCH("/:id", canManage, orgHandler.UpdateOrganization)
			orgs.DELETE("/:id", canManage, orgHandler.DeleteOrganization)

			orgs.GET("/:id/members", canAccess, orgHandler.ListMembers)
			orgs.POST("/:id/members", canManage, orgHandler.AddMember)
			orgs.DELETE("/:id/members/:user_id", canManage, orgHandler.RemoveMember)
			orgs.PUT("/:id/dealer", middleware.RequireAdmin(), canManage, orgHandler.SetDealer)

			orgs.GET("/:id/invitations", canManage, invitationHandler.ListInvitations)
			orgs.POST("/:id/invitations", canManage, invitationHandler.CreateInvitation)
		}
	}

	return withOrgAppCORS(opts.CORSAllowedOrigins, r)
}

// withOrgAppCORS adds CORS support to the routes org-apps call from their
// own origins. Console routes are served same-origin and pass through.
func withOrgAppCORS(allowedOrigins []string, h http.Handler) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", constants.HeaderRequestID},
		ExposedHeaders: []string{constants.HeaderRequestID},
	}).Handler(h)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isOrgAppPath(r.URL.Path) {
			corsHandler.ServeHTTP(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func isOrgAppPath(path string) bool {
	return strings.HasPrefix(path, "/api/external/") || strings.HasPrefix(path, "/api/invitations/")
}
