package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"
)

// RecordsHandler serves the synced clinical data shown on the patient
// portal: lab reports, medications and medical summaries. The rows it reads
// are written by the EHR sync pipeline.
type RecordsHandler struct {
	DB *gorm.DB
}

// NewRecordsHandler creates a new RecordsHandler.
func NewRecordsHandler(db *gorm.DB) *RecordsHandler {
	return &RecordsHandler{DB: db}
}

// resolvePatientID determines whose records to read. Patients always read
// their own; doctors and admins may pass ?patientId= to read another
// patient's. Returns "" after writing the error response when access is
// denied.
func resolvePatientID(c *gin.Context) string {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return ""
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	requested := c.Query("patientId")
	if requested == "" || requested == userID {
		return userID
	}
	if userRole == models.RoleDoctor || userRole == models.RoleAdmin {
		return requested
	}

	utils.Forbidden(c, "Patients can only view their own records")
	return ""
}

// GetLabReports handles fetching lab reports for a patient.
func (h *RecordsHandler) GetLabReports(c *gin.Context) {
	patientID := resolvePatientID(c)
	if patientID == "" {
		return
	}

	var reports []models.LabReport
	if err := h.DB.Where("patient_id = ?", patientID).Order("report_date desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch lab reports: "+err.Error())
		return
	}

	utils.Success(c, "Lab reports fetched successfully", reports)
}

// GetMedications handles fetching medications for a patient.
func (h *RecordsHandler) GetMedications(c *gin.Context) {
	patientID := resolvePatientID(c)
	if patientID == "" {
		return
	}

	var medications []models.Medication
	if err := h.DB.Where("patient_id = ?", patientID).Order("start_date desc").Find(&medications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medications: "+err.Error())
		return
	}

	utils.Success(c, "Medications fetched successfully", medications)
}

// GetMedicalSummaries handles fetching visit summaries for a patient.
func (h *RecordsHandler) GetMedicalSummaries(c *gin.Context) {
	patientID := resolvePatientID(c)
	if patientID == "" {
		return
	}

	var summaries []models.MedicalSummary
	if err := h.DB.Where("patient_id = ?", patientID).Order("summary_date desc").Find(&summaries).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medical summaries: "+err.Error())
		return
	}

	utils.Success(c, "Medical summaries fetched successfully", summaries)
}
