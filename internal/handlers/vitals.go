package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"
)

// VitalHandler handles patient-recorded vital signs for the portal.
type VitalHandler struct {
	DB *gorm.DB
}

// NewVitalHandler creates a new VitalHandler.
func NewVitalHandler(db *gorm.DB) *VitalHandler {
	return &VitalHandler{DB: db}
}

// CreateVitalRequest represents the request body for recording a vital sign.
type CreateVitalRequest struct {
	Type       string     `json:"type" binding:"required,oneof=blood_pressure heart_rate temperature blood_sugar weight oxygen_saturation"`
	Value      string     `json:"value" binding:"required"`
	Unit       string     `json:"unit"`
	Notes      string     `json:"notes"`
	RecordedAt *time.Time `json:"recordedAt"`
}

// CreateVital handles recording a vital sign for the logged-in patient.
func (h *VitalHandler) CreateVital(c *gin.Context) {
	var req CreateVitalRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	recordedAt := time.Now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	vital := models.VitalSign{
		PatientID:  patientID,
		Type:       models.VitalType(req.Type),
		Value:      req.Value,
		Unit:       req.Unit,
		Notes:      req.Notes,
		RecordedAt: recordedAt,
	}

	if err := h.DB.Create(&vital).Error; err != nil {
		utils.InternalServerError(c, "Failed to record vital sign: "+err.Error())
		return
	}

	utils.Created(c, "Vital sign recorded successfully", vital)
}

// GetVitals handles fetching vital signs for a patient, optionally filtered
// by type.
func (h *VitalHandler) GetVitals(c *gin.Context) {
	patientID := resolvePatientID(c)
	if patientID == "" {
		return
	}

	query := h.DB.Where("patient_id = ?", patientID)
	if vitalType := c.Query("type"); vitalType != "" {
		query = query.Where("type = ?", vitalType)
	}

	var vitals []models.VitalSign
	if err := query.Order("recorded_at desc").Find(&vitals).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch vital signs: "+err.Error())
		return
	}

	utils.Success(c, "Vital signs fetched successfully", vitals)
}
