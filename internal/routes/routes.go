package routes

import (
	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/handlers"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/scheduling"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, service *scheduling.Service) {
	// Initialize handlers
	appointmentHandler := handlers.NewAppointmentHandler(service)
	noteHandler := handlers.NewNoteHandler(service)
	directoryHandler := handlers.NewDirectoryHandler(db)

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		// Profile directory
		authRoutes := private.Group("/auth")
		{
			authRoutes.GET("/profile", directoryHandler.GetProfile)
		}
		userRoutes := private.Group("/users")
		{
			// Accessible by all authenticated users: patients need this to book
			userRoutes.GET("/practitioners", directoryHandler.GetPractitioners)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Patients book for themselves; the service enforces ownership
			appointmentRoutes.POST("", middleware.RequireRoles(models.RolePatient), appointmentHandler.CreateAppointment)

			// Role-scoped listing (patient: own, practitioner: assigned, admin: all)
			appointmentRoutes.GET("/my", appointmentHandler.GetMyAppointments)

			// Specific appointment access (involved patient/practitioner, or admin)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)

			// Status transitions (authorization per transition in the service)
			appointmentRoutes.PUT("/:id/status", appointmentHandler.UpdateAppointmentStatus)

			// Clinical note tied to an appointment
			appointmentRoutes.GET("/:id/note", appointmentHandler.GetAppointmentNote)
		}

		// Clinical note routes
		noteRoutes := private.Group("/notes")
		{
			// Practitioners record notes; completion happens in the same transaction
			noteRoutes.POST("", middleware.RequireRoles(models.RolePractitioner), noteHandler.CreateClinicalNote)

			// Signing is restricted to the creating practitioner
			noteRoutes.PUT("/:id/sign", middleware.RequireRoles(models.RolePractitioner), noteHandler.SignClinicalNote)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
