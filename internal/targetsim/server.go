// Package targetsim is an in-memory fake of the library room reservation
// API the bundled presets exercise. It backs the runner tests and the
// library_api test server.
package targetsim

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// AdminEmail and AdminPassword are the credentials of the seeded admin.
const (
	AdminEmail    = "root@kutuphane.com"
	AdminPassword = "root123"
)

// Options tune the simulator.
type Options struct {
	// Latency delays every response. A cancelled request stops waiting.
	Latency time.Duration
	// Logger receives one debug line per request. Nil disables logging.
	Logger *zap.Logger
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
}

// Server holds the simulated API state.
type Server struct {
	opt      Options
	requests atomic.Int64

	mu           sync.Mutex
	users        []User
	reservations []Reservation
	nextUser     int64
	nextRes      int64
}

// User is an account of the simulated API.
type User struct {
	UserID   int64  `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	password string
}

// Room is a bookable study room.
type Room struct {
	RoomID   int64  `json:"roomId"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

// Equipment is a bookable device.
type Equipment struct {
	EquipmentID int64  `json:"equipmentId"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Status      string `json:"status"`
}

// TimeSlot is a reservable period of a day.
type TimeSlot struct {
	TimeSlotID int64  `json:"timeSlotId"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

// Reservation books a room for one time slot on one date.
type Reservation struct {
	ReservationID   int64  `json:"reservationId"`
	UserID          int64  `json:"userId"`
	RoomID          int64  `json:"roomId"`
	TimeSlotID      int64  `json:"timeSlotId"`
	ReservationDate string `json:"reservationDate"`
	Status          string `json:"status"`
}

var (
	rooms = []Room{
		{RoomID: 1, Name: "Study Room A", Capacity: 4, Status: "EMPTY"},
		{RoomID: 2, Name: "Study Room B", Capacity: 6, Status: "EMPTY"},
		{RoomID: 3, Name: "Group Room", Capacity: 12, Status: "MAINTENANCE"},
	}
	equipment = []Equipment{
		{EquipmentID: 1, Name: "Projector", Type: "AV", Status: "AVAILABLE"},
		{EquipmentID: 2, Name: "Laptop", Type: "COMPUTER", Status: "AVAILABLE"},
	}
	timeSlots = []TimeSlot{
		{TimeSlotID: 1, StartTime: "09:00", EndTime: "11:00"},
		{TimeSlotID: 2, StartTime: "11:00", EndTime: "13:00"},
		{TimeSlotID: 3, StartTime: "13:00", EndTime: "15:00"},
	}
)

// New returns a simulator seeded with the admin account.
func New(opt Options) *Server {
	s := &Server{opt: opt, nextUser: 1}
	s.users = append(s.users, User{
		UserID:   s.nextUser,
		Name:     "Root",
		Email:    AdminEmail,
		Role:     "ADMIN",
		password: AdminPassword,
	})
	return s
}

// Requests returns how many requests the simulator has served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.count)
	if s.opt.Logger != nil {
		r.Use(s.logRequests)
	}

	origins := s.opt.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if s.opt.Latency > 0 {
		r.Use(s.delay)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", s.listRooms)
		r.Get("/rooms/available", s.availableRooms)
		r.Get("/equipment", s.listEquipment)
		r.Get("/timeslots", s.listTimeSlots)

		r.Post("/auth/login", s.login)
		r.Post("/auth/register", s.register)

		r.Get("/reservations", s.listReservations)
		r.Post("/reservations", s.createReservation)
		r.Patch("/reservations/{id}/cancel", s.cancelReservation)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", s.dashboard)
			r.Get("/users", s.listUsers)
			r.Get("/reservations", s.listReservations)
			r.Get("/reservations/pending", s.pendingReservations)
		})
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(s.opt.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	logger := s.opt.Logger.With(zap.String("component", "targetsim"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) listRooms(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, rooms)
}

func (s *Server) listEquipment(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, equipment)
}

func (s *Server) listTimeSlots(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, timeSlots)
}

func (s *Server) availableRooms(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	slot, err := strconv.ParseInt(r.URL.Query().Get("timeSlotId"), 10, 64)
	if date == "" || err != nil {
		respondError(w, http.StatusBadRequest, "date and timeSlotId are required")
		return
	}
	if !knownTimeSlot(slot) {
		respondError(w, http.StatusNotFound, "time slot not found")
		return
	}

	s.mu.Lock()
	booked := make(map[int64]bool)
	for _, res := range s.reservations {
		if res.Status != "IPTAL_EDILDI" && res.ReservationDate == date && res.TimeSlotID == slot {
			booked[res.RoomID] = true
		}
	}
	s.mu.Unlock()

	free := make([]Room, 0, len(rooms))
	for _, room := range rooms {
		if room.Status == "EMPTY" && !booked[room.RoomID] {
			free = append(free, room)
		}
	}
	respondJSON(w, http.StatusOK, free)
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == req.Email && u.password == req.Password {
			respondJSON(w, http.StatusOK, u)
			return
		}
	}
	respondError(w, http.StatusUnauthorized, "invalid email or password")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == req.Email {
			respondError(w, http.StatusBadRequest, "email already registered")
			return
		}
	}
	s.nextUser++
	u := User{UserID: s.nextUser, Name: req.Name, Email: req.Email, Role: "USER", password: req.Password}
	s.users = append(s.users, u)
	respondJSON(w, http.StatusCreated, u)
}

type reservationRequest struct {
	UserID          int64  `json:"userId"`
	RoomID          int64  `json:"roomId"`
	TimeSlotID      int64  `json:"timeSlotId"`
	ReservationDate string `json:"reservationDate"`
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoomID == 0 || req.ReservationDate == "" || !knownTimeSlot(req.TimeSlotID) {
		respondError(w, http.StatusBadRequest, "roomId, timeSlotId and reservationDate are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, res := range s.reservations {
		if res.Status != "IPTAL_EDILDI" && res.RoomID == req.RoomID &&
			res.TimeSlotID == req.TimeSlotID && res.ReservationDate == req.ReservationDate {
			respondError(w, http.StatusConflict, "room already reserved for this time slot")
			return
		}
	}
	s.nextRes++
	res := Reservation{
		ReservationID:   s.nextRes,
		UserID:          req.UserID,
		RoomID:          req.RoomID,
		TimeSlotID:      req.TimeSlotID,
		ReservationDate: req.ReservationDate,
		Status:          "BEKLENIYOR",
	}
	s.reservations = append(s.reservations, res)
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reservations {
		if s.reservations[i].ReservationID == id {
			s.reservations[i].Status = "IPTAL_EDILDI"
			respondJSON(w, http.StatusOK, s.reservations[i])
			return
		}
	}
	respondError(w, http.StatusNotFound, "reservation not found")
}

func (s *Server) listReservations(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]Reservation(nil), s.reservations...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) pendingReservations(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]Reservation, 0)
	for _, res := range s.reservations {
		if res.Status == "BEKLENIYOR" {
			out = append(out, res)
		}
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]User(nil), s.users...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) dashboard(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := 0
	for _, res := range s.reservations {
		if res.Status == "BEKLENIYOR" {
			pending++
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"totalUsers":          len(s.users),
		"totalRooms":          len(rooms),
		"totalEquipment":      len(equipment),
		"totalReservations":   len(s.reservations),
		"pendingReservations": pending,
	})
}

func knownTimeSlot(id int64) bool {
	for _, ts := range timeSlots {
		if ts.TimeSlotID == id {
			return true
		}
	}
	return false
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
