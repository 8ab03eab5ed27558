package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doctorAppointment/chatbot"
	"doctorAppointment/fallback"
	"doctorAppointment/models"
	"doctorAppointment/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// flatEmbedder maps every text to the same vector so any indexed chunk
// matches any question.
type flatEmbedder struct{}

func (flatEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 1}
	}
	return out, nil
}

func (flatEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 1}, nil
}

type stubModel struct {
	reply string
	err   error
}

func (m stubModel) Generate(context.Context, string, []chatbot.Turn, string) (string, error) {
	return m.reply, m.err
}

func newTestHandler(t *testing.T, bot *chatbot.Service) (*Handler, http.Handler) {
	t.Helper()
	store, err := fallback.Load(filepath.Join("..", "data", "appointment_data.json"))
	require.NoError(t, err)
	if bot == nil {
		bot = chatbot.NewService(nil, nil)
	}

	h := NewHandler(store, utils.NewAuthenticator("test-secret"), bot, nil, "http://localhost:4000", true)
	go h.Hub.Run()
	t.Cleanup(h.Hub.Close)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/doctors", h.ListDoctors).Methods("GET")
	r.HandleFunc("/doctors/{id}", h.GetDoctor).Methods("GET")
	r.HandleFunc("/specialties", h.ListSpecialties).Methods("GET")
	r.HandleFunc("/signup", h.RegisterPatient).Methods("POST")
	r.HandleFunc("/signup/doctor", h.RegisterDoctor).Methods("POST")
	r.HandleFunc("/signup/clinic", h.RegisterClinic).Methods("POST")
	r.HandleFunc("/login", h.LoginPatient).Methods("POST")
	r.HandleFunc("/login/doctor", h.LoginDoctor).Methods("POST")
	r.HandleFunc("/appointment", h.GetBookedTimes).Methods("GET")
	r.HandleFunc("/book-appointment", h.BookAppointment).Methods("POST")
	r.Handle("/appointments/user/{userId}", h.Auth.OptionalAuth(http.HandlerFunc(h.GetPatientAppointments))).Methods("GET")
	r.HandleFunc("/appointments/{id}", h.CancelAppointment).Methods("DELETE")
	r.HandleFunc("/chat", h.Chat).Methods("POST")
	return h, r
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListDoctors(t *testing.T) {
	_, router := newTestHandler(t, nil)

	rec := do(t, router, http.MethodGet, "/doctors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doctors []models.Doctor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doctors))
	assert.Len(t, doctors, 8)
	assert.Equal(t, "Sarah Johnson", doctors[0].Name)
	assert.Contains(t, doctors[0].Specialties, "Cardiology")

	rec = do(t, router, http.MethodGet, "/doctors?page=2&limit=3", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doctors))
	require.Len(t, doctors, 3)
	assert.Equal(t, 4, doctors[0].ID)

	rec = do(t, router, http.MethodGet, "/doctors?search=CARDIO", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doctors))
	require.NotEmpty(t, doctors)
	for _, d := range doctors {
		assert.Contains(t, d.Specialties, "Cardiology")
	}

	rec = do(t, router, http.MethodGet, "/doctors?page=99", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetDoctor(t *testing.T) {
	_, router := newTestHandler(t, nil)

	rec := do(t, router, http.MethodGet, "/doctors/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Sarah Johnson", body["name"])
	assert.Contains(t, body, "clinics")
	assert.Contains(t, body, "reviews")
	assert.Contains(t, body, "availability")

	for _, path := range []string{"/doctors/999", "/doctors/abc"} {
		rec = do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Doctor not found", decode(t, rec)["error"])
	}
}

func TestSignupAndLogin(t *testing.T) {
	_, router := newTestHandler(t, nil)

	rec := do(t, router, http.MethodPost, "/signup", map[string]string{
		"username": "ann", "email": "ann@example.com", "password": "secret", "dob": "1990-04-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "User registered successfully", body["message"])
	assert.EqualValues(t, 1, body["userId"])

	rec = do(t, router, http.MethodPost, "/signup", map[string]string{"email": "ann@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decode(t, rec)["error"])

	rec = do(t, router, http.MethodPost, "/signup", map[string]string{"email": "ann@example.com"})
	assert.Equal(t, "Email and password required", decode(t, rec)["error"])

	rec = do(t, router, http.MethodPost, "/signup", map[string]string{"email": "not-an-email", "password": "x"})
	assert.Equal(t, "Invalid email format", decode(t, rec)["error"])

	rec = do(t, router, http.MethodPost, "/login", map[string]string{"email": "ann@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1", body["userId"])
	assert.NotEmpty(t, body["token"])

	rec = do(t, router, http.MethodPost, "/login", map[string]string{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec)["message"])

	rec = do(t, router, http.MethodPost, "/login", map[string]string{"email": "nobody@example.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/login", map[string]string{"email": "ann@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestDoctorSignupAndLogin(t *testing.T) {
	_, router := newTestHandler(t, nil)

	rec := do(t, router, http.MethodPost, "/signup/doctor", map[string]interface{}{
		"name": "Grace Lee", "email": "grace@example.com", "password": "pw",
		"exp": "6", "online_fee": 20, "visit_fee": "45", "specialty_id": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Doctor registered successfully", body["message"])
	assert.EqualValues(t, 9, body["doctorId"])

	rec = do(t, router, http.MethodGet, "/doctors/9", nil)
	detail := decode(t, rec)
	assert.Equal(t, models.DefaultDoctorImage, detail["image_url"])
	assert.Equal(t, "Dermatology", detail["specialties"])

	rec = do(t, router, http.MethodPost, "/signup/doctor", map[string]interface{}{
		"name": "Grace Lee", "email": "grace2@example.com", "password": "pw", "exp": -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/signup/doctor", map[string]interface{}{"email": "x@example.com"})
	assert.Equal(t, "Name, email, and password required", decode(t, rec)["error"])

	rec = do(t, router, http.MethodPost, "/login/doctor", map[string]string{"email": "grace@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9", decode(t, rec)["doctorId"])

	// Fixture doctors carry no password.
	rec = do(t, router, http.MethodPost, "/login/doctor", map[string]string{"email": "sarah.johnson@example.com", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodPost, "/login/doctor", map[string]string{"email": "sarah.johnson@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClinicSignup(t *testing.T) {
	_, router := newTestHandler(t, nil)

	rec := do(t, router, http.MethodPost, "/signup/clinic", map[string]string{"name": "Downtown Clinic", "phone": "555-0101"})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Clinic registered successfully (demo mode)", body["message"])
	assert.EqualValues(t, 1, body["clinicId"])

	rec = do(t, router, http.MethodPost, "/signup/clinic", map[string]string{"address": "Main St"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Clinic name required", decode(t, rec)["error"])
}

func TestAppointmentLifecycle(t *testing.T) {
	h, router := newTestHandler(t, nil)

	booking := map[string]interface{}{
		"patientId": "1", "doctorId": 2, "date": "2030-05-01", "time": "10:30", "reason": "rash",
	}
	rec := do(t, router, http.MethodPost, "/book-appointment", booking)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Appointment booked successfully", body["message"])
	assert.EqualValues(t, 1, body["appointmentId"])

	rec = do(t, router, http.MethodPost, "/book-appointment", booking)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Time slot already booked", decode(t, rec)["error"])

	rec = do(t, router, http.MethodGet, "/appointment?doctorId=2&date=2030-05-01", nil)
	assert.JSONEq(t, `{"bookedTimes":["10:30"]}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/appointment?doctorId=2", nil)
	assert.JSONEq(t, `{"bookedTimes":[]}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/appointments/user/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Michael Chen", list[0].DoctorName)
	assert.Equal(t, models.StatusConfirmed, list[0].Status)

	token, err := h.Auth.GenerateToken(2, "other@example.com", false)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/appointments/user/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodDelete, "/appointments/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Appointment deleted successfully", decode(t, rec)["message"])

	rec = do(t, router, http.MethodDelete, "/appointments/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/appointments/user/1", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// The cancelled slot can be booked again.
	rec = do(t, router, http.MethodPost, "/book-appointment", booking)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookAppointmentValidation(t *testing.T) {
	_, router := newTestHandler(t, nil)

	cases := []struct {
		name    string
		body    map[string]interface{}
		code    int
		message string
	}{
		{"missing time", map[string]interface{}{"patientId": 1, "doctorId": 1, "date": "2030-05-01"}, http.StatusBadRequest, "Patient, doctor, date, and time are required."},
		{"bad date", map[string]interface{}{"patientId": 1, "doctorId": 1, "date": "05/01/2030", "time": "10:00"}, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD"},
		{"bad time", map[string]interface{}{"patientId": 1, "doctorId": 1, "date": "2030-05-01", "time": "10am"}, http.StatusBadRequest, "Invalid time format, expected HH:MM"},
		{"unknown doctor", map[string]interface{}{"patientId": 1, "doctorId": 404, "date": "2030-05-01", "time": "10:00"}, http.StatusNotFound, "Doctor not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/book-appointment", tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.message, decode(t, rec)["error"])
		})
	}
}

func TestChat(t *testing.T) {
	_, router := newTestHandler(t, nil)

	rec := do(t, router, http.MethodPost, "/chat", map[string]interface{}{"message": "Hello there"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, chatbot.GreetingReply, body["reply"])
	assert.Equal(t, "greeting", body["source"])

	for _, payload := range []interface{}{
		map[string]interface{}{"message": "   "},
		map[string]interface{}{"message": 42},
		map[string]interface{}{},
	} {
		rec = do(t, router, http.MethodPost, "/chat", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Please enter a valid message about the project.", decode(t, rec)["error"])
	}

	rec = do(t, router, http.MethodPost, "/chat", map[string]interface{}{"message": "How do I book?"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Project data is still loading. Please try again shortly.", decode(t, rec)["error"])
}

func TestChatAnswersFromContext(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "project.md")
	require.NoError(t, os.WriteFile(doc, []byte("Patients book appointments with POST /book-appointment."), 0o644))

	bot := chatbot.NewService(flatEmbedder{}, stubModel{reply: "Use POST /book-appointment."})
	require.NoError(t, bot.Initialize(context.Background(), doc))
	_, router := newTestHandler(t, bot)

	rec := do(t, router, http.MethodPost, "/chat", map[string]interface{}{
		"message":     "How do I book?",
		"chatHistory": "not a list",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Use POST /book-appointment.", body["reply"])
	assert.Len(t, body["context"], 1)

	failing := chatbot.NewService(flatEmbedder{}, stubModel{err: assert.AnError})
	require.NoError(t, failing.Initialize(context.Background(), doc))
	_, router = newTestHandler(t, failing)

	rec = do(t, router, http.MethodPost, "/chat", map[string]interface{}{"message": "How do I book?"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Error processing your question", body["error"])
	assert.Equal(t, assert.AnError.Error(), body["details"])
}

func TestHealth(t *testing.T) {
	_, router := newTestHandler(t, nil)

	rec := do(t, router, http.MethodGet, "/health", nil)
	assert.JSONEq(t, `{"status":"ok","mode":"fallback","chatbot":"disabled"}`, rec.Body.String())
}

func TestChatWebsocket(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	server := httptest.NewServer(http.HandlerFunc(h.ServeChatWs))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	exchange := func(frame string) map[string]interface{} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var reply map[string]interface{}
		require.NoError(t, conn.ReadJSON(&reply))
		return reply
	}

	assert.Equal(t, chatbot.GreetingReply, exchange(`{"message":"hi"}`)["reply"])
	assert.Equal(t, "Please enter a valid message about the project.", exchange(`{"message":""}`)["error"])
	assert.Equal(t, "Project data is still loading. Please try again shortly.", exchange(`{"message":"how do I cancel?"}`)["error"])
	assert.Eventually(t, func() bool { return h.Hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	h.Hub.Close()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestChatWebsocketRejectsForeignOrigin(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	server := httptest.NewServer(http.HandlerFunc(h.ServeChatWs))
	defer server.Close()

	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChatWebsocketFramesAreRateLimited(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	h.ChatLimit = utils.NewRateLimiter(utils.RateLimitConfig{Rate: rate.Every(time.Hour), Burst: 3}, nil)
	server := httptest.NewServer(http.HandlerFunc(h.ServeChatWs))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The upgrade took one token, leaving two frames.
	var replies []map[string]interface{}
	for i := 0; i < 4; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"hello"}`)))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var reply map[string]interface{}
		require.NoError(t, conn.ReadJSON(&reply))
		replies = append(replies, reply)
	}
	assert.Equal(t, chatbot.GreetingReply, replies[0]["reply"])
	assert.Equal(t, chatbot.GreetingReply, replies[1]["reply"])
	assert.Equal(t, utils.TooManyRequests, replies[2]["error"])
	assert.Equal(t, utils.TooManyRequests, replies[3]["error"])

	// A new connection from the same client is refused before the upgrade.
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	_, router := newTestHandler(t, nil)
	huge := strings.Repeat("a", maxBodySize+1)

	rec := do(t, router, http.MethodPost, "/chat", map[string]interface{}{"message": huge})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter a valid message about the project.", decode(t, rec)["error"])

	rec = do(t, router, http.MethodPost, "/signup", map[string]string{
		"email": "big@example.com", "password": "x", "username": huge,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["error"])
}

func TestBookAppointmentRejectsFractionalIDs(t *testing.T) {
	_, router := newTestHandler(t, nil)

	for _, id := range []interface{}{"2.5", 2.5, 1e30} {
		rec := do(t, router, http.MethodPost, "/book-appointment", map[string]interface{}{
			"patientId": 1, "doctorId": id, "date": "2030-05-01", "time": "10:00",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "Invalid request body", decode(t, rec)["error"])
	}

	rec := do(t, router, http.MethodGet, "/appointment?doctorId=2&date=2030-05-01", nil)
	assert.JSONEq(t, `{"bookedTimes":[]}`, rec.Body.String())
}
