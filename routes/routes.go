package routes

import (
	"net/http"
	"os"

	"doctorAppointment/controllers"
	"doctorAppointment/utils"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func SetupRoutes(router *mux.Router, h *controllers.Handler, frontendURL string) http.Handler {
	authLimit, chatLimit := h.AuthLimit, h.ChatLimit

	router.HandleFunc("/health", h.Health).Methods("GET")

	// Doctor routes
	router.HandleFunc("/doctors", h.ListDoctors).Methods("GET")
	router.HandleFunc("/doctors/{id}", h.GetDoctor).Methods("GET")
	router.HandleFunc("/specialties", h.ListSpecialties).Methods("GET")

	// Account routes
	router.HandleFunc("/signup", authLimit.Limit(h.RegisterPatient)).Methods("POST")
	router.HandleFunc("/signup/doctor", authLimit.Limit(h.RegisterDoctor)).Methods("POST")
	router.HandleFunc("/signup/clinic", authLimit.Limit(h.RegisterClinic)).Methods("POST")
	router.HandleFunc("/login", authLimit.Limit(h.LoginPatient)).Methods("POST")
	router.HandleFunc("/login/doctor", authLimit.Limit(h.LoginDoctor)).Methods("POST")

	// Appointment routes
	router.HandleFunc("/appointment", h.GetBookedTimes).Methods("GET")
	router.HandleFunc("/book-appointment", h.BookAppointment).Methods("POST")
	router.Handle("/appointments/user/{userId}", h.Auth.OptionalAuth(http.HandlerFunc(h.GetPatientAppointments))).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.CancelAppointment).Methods("DELETE")

	// Chat routes
	router.HandleFunc("/chat", chatLimit.Limit(h.Chat)).Methods("POST")
	router.HandleFunc("/ws/chat", h.ServeChatWs).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Origin", "Accept", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	})

	var handler http.Handler = router
	handler = utils.RequestIDMiddleware(handler)
	handler = c.Handler(handler)
	handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(handler)
	return handlers.CombinedLoggingHandler(os.Stdout, handler)
}
