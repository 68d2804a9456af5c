package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"
)

// AppointmentHandler handles appointment related requests. Synced
// appointments come from the EHR; booking requests made on the portal are
// stored in the same table with a locally generated reference id until the
// clinic confirms them in the EHR.
type AppointmentHandler struct {
	DB *gorm.DB
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB) *AppointmentHandler {
	return &AppointmentHandler{DB: db}
}

// CreateAppointmentRequest represents the request body for a booking request.
type CreateAppointmentRequest struct {
	Date       string `json:"date" binding:"required"`
	Time       string `json:"time" binding:"required"`
	DoctorName string `json:"doctor" binding:"required"`
	Department string `json:"department"`
	Reason     string `json:"reason" binding:"required"`
}

// CreateAppointment handles a patient's booking request.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	requestedDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}
	if requestedDate.Before(time.Now().Truncate(24 * time.Hour)) {
		utils.BadRequest(c, "Appointment date must be in the future.")
		return
	}

	appointment := models.Appointment{
		PatientID: patientID,
		// Local reference id keeps the (patient, reference) key unique next
		// to EHR-synced rows
		EhrReferenceID:  fmt.Sprintf("local-%s", uuid.New().String()[:8]),
		AppointmentDate: req.Date,
		AppointmentTime: req.Time,
		DoctorName:      req.DoctorName,
		Department:      req.Department,
		Status:          "requested",
		Reason:          req.Reason,
	}

	if err := h.DB.Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}

	utils.Created(c, "Appointment requested successfully", appointment)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in
// patient, or for another patient when requested by a doctor or admin.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	patientID := resolvePatientID(c)
	if patientID == "" {
		return
	}

	var appointments []models.Appointment
	if err := h.DB.Where("patient_id = ?", patientID).
		Order("appointment_date asc, appointment_time asc").
		Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// CancelAppointment handles cancelling a locally requested appointment.
// Synced EHR appointments cannot be cancelled from the portal; the EHR owns
// them.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != appointment.PatientID {
		utils.Forbidden(c, "You are not authorized to cancel this appointment")
		return
	}

	if len(appointment.EhrReferenceID) < 6 || appointment.EhrReferenceID[:6] != "local-" {
		utils.BadRequest(c, "EHR-managed appointments must be cancelled with the clinic directly")
		return
	}
	if appointment.Status == "cancelled" {
		utils.BadRequest(c, "Appointment is already cancelled")
		return
	}

	appointment.Status = "cancelled"
	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to cancel appointment: "+err.Error())
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appointment)
}
