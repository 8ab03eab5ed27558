// controllers/login.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"doctorAppointment/models"
	"doctorAppointment/utils"

	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func loginFailure(w http.ResponseWriter, code int, message string) {
	utils.RespondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// readLogin decodes and validates the credentials, answering the request
// itself when they are unusable.
func readLogin(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		loginFailure(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := validate.Struct(req); err != nil {
		loginFailure(w, http.StatusBadRequest, "Email and password required")
		return req, false
	}
	return req, true
}

// LoginPatient handles POST /login
func (h *Handler) LoginPatient(w http.ResponseWriter, r *http.Request) {
	req, ok := readLogin(w, r)
	if !ok {
		return
	}

	patient, err := h.Store.GetPatientByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			loginFailure(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		logError(r, "looking up patient", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Server error",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(patient.Password), []byte(req.Password)); err != nil {
		loginFailure(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.Auth.GenerateToken(patient.ID, patient.Email, false)
	if err != nil {
		logError(r, "generating token", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Error generating token",
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"userId":  strconv.Itoa(patient.ID),
		"token":   token,
	})
}

// LoginDoctor handles POST /login/doctor
func (h *Handler) LoginDoctor(w http.ResponseWriter, r *http.Request) {
	req, ok := readLogin(w, r)
	if !ok {
		return
	}

	doctor, err := h.Store.GetDoctorByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			loginFailure(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		logError(r, "looking up doctor", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Server error",
		})
		return
	}

	// Fixture doctors have no password and cannot log in.
	if doctor.Password == "" {
		loginFailure(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doctor.Password), []byte(req.Password)); err != nil {
		loginFailure(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.Auth.GenerateToken(doctor.ID, doctor.Email, true)
	if err != nil {
		logError(r, "generating token", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Error generating token",
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"doctorId": strconv.Itoa(doctor.ID),
		"token":    token,
	})
}
