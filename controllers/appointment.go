// controllers/appointment.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"doctorAppointment/models"
	"doctorAppointment/utils"

	"github.com/gorilla/mux"
)

type AppointmentRequest struct {
	PatientID models.FlexInt `json:"patientId" validate:"required,gt=0"`
	DoctorID  models.FlexInt `json:"doctorId" validate:"required,gt=0"`
	Date      string         `json:"date" validate:"required,datetime=2006-01-02"` // Format: "2025-08-23"
	Time      string         `json:"time" validate:"required,datetime=15:04"`      // Format: "12:00"
	Reason    string         `json:"reason"`
}

// GetBookedTimes handles GET /appointment?doctorId&date. The calendar uses
// the result to disable slots; incomplete queries get an empty list.
func (h *Handler) GetBookedTimes(w http.ResponseWriter, r *http.Request) {
	empty := map[string][]string{"bookedTimes": {}}

	doctorID, err := strconv.Atoi(r.URL.Query().Get("doctorId"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if err != nil || date == "" {
		utils.RespondWithJSON(w, http.StatusOK, empty)
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		utils.RespondWithJSON(w, http.StatusOK, empty)
		return
	}

	booked, err := h.Store.BookedTimes(r.Context(), doctorID, date)
	if err != nil {
		logError(r, "fetching booked times", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving booked times")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string][]string{"bookedTimes": booked})
}

// BookAppointment handles POST /book-appointment
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)

	if err := validate.Struct(req); err != nil {
		if missingRequired(err) {
			utils.RespondWithError(w, http.StatusBadRequest, "Patient, doctor, date, and time are required.")
			return
		}
		switch field, _ := firstInvalid(err); field {
		case "Date":
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
		case "Time":
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid time format, expected HH:MM")
		default:
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid patient or doctor ID")
		}
		return
	}

	appointment := &models.Appointment{
		PatientID:       int(req.PatientID),
		DoctorID:        int(req.DoctorID),
		AppointmentDate: req.Date,
		TimeSlot:        req.Time,
		Reason:          req.Reason,
	}

	appointmentID, err := h.Store.CreateAppointment(r.Context(), appointment)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Doctor not found")
		case errors.Is(err, models.ErrSlotTaken):
			utils.RespondWithError(w, http.StatusConflict, "Time slot already booked")
		default:
			logError(r, "booking appointment", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Appointment booked successfully",
		"appointmentId": appointmentID,
	})
}

// GetPatientAppointments handles GET /appointments/user/{userId}. A
// patient token, when sent, must belong to the requested user.
func (h *Handler) GetPatientAppointments(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["userId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if claims, ok := utils.GetUserClaims(r.Context()); ok && claims.IsPatient && claims.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Unauthorized access")
		return
	}

	appointments, err := h.Store.ListPatientAppointments(r.Context(), userID)
	if err != nil {
		logError(r, "listing appointments", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving appointments")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, appointments)
}

// CancelAppointment handles DELETE /appointments/{id}
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Appointment not found")
		return
	}

	if err := h.Store.CancelAppointment(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Appointment not found")
			return
		}
		logError(r, "cancelling appointment", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error cancelling appointment")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted successfully"})
}
