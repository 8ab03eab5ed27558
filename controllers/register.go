// controllers/register.go
package controllers

import (
	"errors"
	"net/http"
	"strings"

	"doctorAppointment/models"
	"doctorAppointment/utils"

	"golang.org/x/crypto/bcrypt"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DOB      string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
}

type doctorSignupRequest struct {
	Name        string           `json:"name" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Password    string           `json:"password" validate:"required"`
	Bio         string           `json:"bio"`
	Exp         models.FlexInt   `json:"exp" validate:"gte=0"`
	OnlineFee   models.FlexFloat `json:"online_fee" validate:"gte=0"`
	VisitFee    models.FlexFloat `json:"visit_fee" validate:"gte=0"`
	SpecialtyID models.FlexInt   `json:"specialty_id" validate:"gte=0"`
}

type clinicSignupRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// RegisterPatient handles POST /signup
func (h *Handler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := validate.Struct(req); err != nil {
		if missingRequired(err) {
			utils.RespondWithError(w, http.StatusBadRequest, "Email and password required")
			return
		}
		if field, _ := firstInvalid(err); field == "DOB" {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid date of birth format")
			return
		}
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logError(r, "hashing password", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not hash password")
		return
	}

	userID, err := h.Store.CreatePatient(r.Context(), &models.Patient{
		Username: req.Username,
		Email:    req.Email,
		DOB:      req.DOB,
		Password: string(hashedPassword),
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			utils.RespondWithError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		logError(r, "creating patient", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error registering patient")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"userId":  userID,
	})
}

// RegisterDoctor handles POST /signup/doctor
func (h *Handler) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	var req doctorSignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if err := validate.Struct(req); err != nil {
		if missingRequired(err) {
			utils.RespondWithError(w, http.StatusBadRequest, "Name, email, and password required")
			return
		}
		switch field, _ := firstInvalid(err); field {
		case "Email":
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid email format")
		default:
			utils.RespondWithError(w, http.StatusBadRequest, "Experience, fees and specialty cannot be negative")
		}
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logError(r, "hashing password", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not hash password")
		return
	}

	doctor := &models.Doctor{
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Bio:       req.Bio,
		ImageURL:  models.DefaultDoctorImage,
		Exp:       int(req.Exp),
		OnlineFee: float64(req.OnlineFee),
		VisitFee:  float64(req.VisitFee),
	}

	doctorID, err := h.Store.CreateDoctor(r.Context(), doctor, int(req.SpecialtyID))
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			utils.RespondWithError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		logError(r, "creating doctor", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error registering doctor")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Doctor registered successfully",
		"doctorId": doctorID,
	})
}

// RegisterClinic handles POST /signup/clinic
func (h *Handler) RegisterClinic(w http.ResponseWriter, r *http.Request) {
	var req clinicSignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	if err := validate.Struct(req); err != nil {
		if missingRequired(err) {
			utils.RespondWithError(w, http.StatusBadRequest, "Clinic name required")
			return
		}
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	clinicID, err := h.Store.CreateClinic(r.Context(), &models.Clinic{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		if errors.Is(err, models.ErrNoClinicsTable) {
			utils.RespondWithError(w, http.StatusNotImplemented, "Clinic registration not configured. Add a clinics table.")
			return
		}
		logError(r, "creating clinic", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error registering clinic")
		return
	}

	message := "Clinic registered successfully"
	if h.Store.Mode() == models.ModeFallback {
		message += " (demo mode)"
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  message,
		"clinicId": clinicID,
	})
}
