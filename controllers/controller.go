package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"doctorAppointment/chatbot"
	"doctorAppointment/models"
	"doctorAppointment/utils"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Handler carries the dependencies shared by every route.
type Handler struct {
	Store   models.Store
	Auth    *utils.Authenticator
	Chatbot *chatbot.Service
	Hub     *Hub

	// AuthLimit guards signup and login, ChatLimit both chat transports.
	AuthLimit *utils.RateLimiter
	ChatLimit *utils.RateLimiter

	// Dev exposes error details in chat failures.
	Dev bool
}

func NewHandler(store models.Store, auth *utils.Authenticator, bot *chatbot.Service, proxies *utils.TrustedProxies, allowedOrigin string, dev bool) *Handler {
	return &Handler{
		Store:     store,
		Auth:      auth,
		Chatbot:   bot,
		Hub:       NewHub(allowedOrigin),
		AuthLimit: utils.NewRateLimiter(utils.AuthRateLimit, proxies),
		ChatLimit: utils.NewRateLimiter(utils.ChatRateLimit, proxies),
		Dev:       dev,
	}
}

// maxBodySize caps every JSON request body, the same as a chat frame.
const maxBodySize = maxFrameSize

// decodeJSON reads the request body into dst. An empty body leaves dst at
// its zero value so field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// firstInvalid returns the struct field and tag of the first validation
// failure in err.
func firstInvalid(err error) (field, tag string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Tag()
	}
	return "", ""
}

// missingRequired reports whether any validation failure is an absent
// required field.
func missingRequired(err error) bool {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return true
			}
		}
	}
	return false
}

func logError(r *http.Request, action string, err error) {
	log.Printf("[%s] %s %s: error %s: %v", utils.RequestID(r.Context()), r.Method, r.URL.Path, action, err)
}

// Health reports the data backend and chatbot state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"mode":    h.Store.Mode(),
		"chatbot": h.Chatbot.Status(),
	})
}
