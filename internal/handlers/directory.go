package handlers

import (
	"errors"

	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DirectoryHandler exposes the profile directory: the practitioner listing
// patients book against, and the caller's own profile.
type DirectoryHandler struct {
	DB *gorm.DB
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(db *gorm.DB) *DirectoryHandler {
	return &DirectoryHandler{DB: db}
}

// GetPractitioners handles listing all practitioners.
func (h *DirectoryHandler) GetPractitioners(c *gin.Context) {
	var practitioners []models.User
	if err := h.DB.Where("role = ?", models.RolePractitioner).Order("last_name asc").Find(&practitioners).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch practitioners")
		return
	}

	utils.Success(c, "Practitioners fetched successfully", practitioners)
}

// GetProfile handles fetching the calling user's own profile.
func (h *DirectoryHandler) GetProfile(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", caller.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Profile not found")
		} else {
			utils.InternalServerError(c, "Failed to fetch profile")
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", user)
}
