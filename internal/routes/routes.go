package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/ehrsync"
	"clinic-portal-server/internal/handlers"
	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, logger zerolog.Logger) {
	// Wire the EHR sync pipeline through its storage port
	store := ehrsync.NewGormStore(db)
	orchestrator := ehrsync.NewOrchestrator(store, time.Duration(cfg.EHRHTTPTimeoutSeconds)*time.Second, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db)
	recordsHandler := handlers.NewRecordsHandler(db)
	vitalHandler := handlers.NewVitalHandler(db)
	ehrHandler := handlers.NewEHRHandler(db, orchestrator)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Doctor directory - accessible by all authenticated users
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Patient list for clinic staff
			userRoutes.GET("/patients", userHandler.GetPatients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser) // Authorization inside handler
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
		}

		// Synced clinical record routes
		recordRoutes := private.Group("/records")
		{
			recordRoutes.GET("/lab-reports", recordsHandler.GetLabReports)
			recordRoutes.GET("/medications", recordsHandler.GetMedications)
			recordRoutes.GET("/medical-summaries", recordsHandler.GetMedicalSummaries)
		}

		// Vital sign routes
		vitalRoutes := private.Group("/vitals")
		{
			vitalRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), vitalHandler.CreateVital)
			vitalRoutes.GET("", vitalHandler.GetVitals)
		}

		// EHR integration routes
		ehrRoutes := private.Group("/ehr")
		{
			// Action dispatch: sync, test, getLoginOTP, patientLogin.
			// Per-action authorization inside the handler.
			ehrRoutes.POST("", ehrHandler.HandleAction)

			adminEhrRoutes := ehrRoutes.Group("")
			adminEhrRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminEhrRoutes.GET("/integration", ehrHandler.GetIntegration)
				adminEhrRoutes.PUT("/integration", ehrHandler.SaveIntegration)
				adminEhrRoutes.GET("/history", ehrHandler.GetSyncHistory)
			}
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
