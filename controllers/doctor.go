// controllers/doctor.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"doctorAppointment/models"
	"doctorAppointment/utils"

	"github.com/gorilla/mux"
)

// ListDoctors handles GET /doctors?page&limit&search
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	page, limit := utils.ParsePagination(r)
	query := models.DoctorQuery{
		Page:   page,
		Limit:  limit,
		Search: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search"))),
	}

	doctors, err := h.Store.ListDoctors(r.Context(), query)
	if err != nil {
		logError(r, "listing doctors", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving doctors")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, doctors)
}

// GetDoctor handles GET /doctors/{id}
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Doctor not found")
		return
	}

	doctor, err := h.Store.GetDoctor(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Doctor not found")
			return
		}
		logError(r, "retrieving doctor", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving doctor profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, doctor)
}

// ListSpecialties handles GET /specialties
func (h *Handler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := h.Store.ListSpecialties(r.Context())
	if err != nil {
		logError(r, "listing specialties", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving specialties")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, specialties)
}
