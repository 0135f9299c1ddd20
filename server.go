package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"i4.energy/across/sigfoxgw/modem"
)

// Server handles incoming HTTP requests for interacting with the
// configured modem instance
type Server struct {
	Logger *slog.Logger
	Modem  *modem.Modem
	// Queue, when set, accepts messages for background delivery
	Queue *Queue
	// Diagnostics, when set, serves the frame trace stream
	Diagnostics http.Handler
	// Token, when set, is required as a bearer token
	Token string
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /device", s.handleDevice)
	mux.HandleFunc("GET /sensors", s.handleSensors)
	if s.Diagnostics != nil {
		mux.Handle("GET /diagnostics", s.Diagnostics)
	}

	if r.URL.Path != "/healthz" && !s.authorized(r) {
		s.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	mux.ServeHTTP(w, r)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.Token == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) == 1
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a modem error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, modem.ErrTooSoon):
		return http.StatusTooManyRequests
	case errors.Is(err, modem.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, modem.ErrAlreadyClosed), errors.Is(err, ErrQueueFull):
		return http.StatusServiceUnavailable
	case isPayloadError(err):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleMessage sends an uplink. With ?queue=true the message is handed to
// the background queue and 202 is returned right away.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("queue") == "true" {
		if s.Queue == nil {
			s.sendError(w, "message queue disabled", http.StatusNotImplemented)
			return
		}
		id, err := s.Queue.Enqueue(msg)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ErrQueueFull) {
				status = http.StatusServiceUnavailable
			}
			s.sendError(w, err.Error(), status)
			return
		}
		s.sendJSON(w, map[string]string{"status": "queued", "id": id}, http.StatusAccepted)
		return
	}

	hexPayload, err := msg.Hex()
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Modem.SendMessage(r.Context(), hexPayload); err != nil {
		s.Logger.Error("Failed to send message", "error", err, "payload", hexPayload)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}

	s.Logger.Info("Message sent successfully", "payload", hexPayload)
	s.sendJSON(w, map[string]string{"status": "sent", "payload": hexPayload}, http.StatusOK)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	type DeviceResponse struct {
		ID       string     `json:"id"`
		Country  string     `json:"country"`
		Zone     string     `json:"zone"`
		Emulator bool       `json:"emulator"`
		LastSend *time.Time `json:"last_send,omitempty"`
	}

	state := s.Modem.State()
	resp := DeviceResponse{
		ID:       state.ID,
		Country:  string(state.Country),
		Zone:     state.Zone.String(),
		Emulator: state.Emulator,
	}
	if !state.LastSend.IsZero() {
		resp.LastSend = &state.LastSend
	}
	s.sendJSON(w, resp, http.StatusOK)
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	type SensorsResponse struct {
		Temperature float64 `json:"temperature"`
		Voltage     float64 `json:"voltage"`
	}

	temp, err := s.Modem.GetTemperature(r.Context())
	if err != nil {
		s.Logger.Error("Failed to read temperature", "error", err)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	volts, err := s.Modem.GetVoltage(r.Context())
	if err != nil {
		s.Logger.Error("Failed to read voltage", "error", err)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	s.sendJSON(w, SensorsResponse{Temperature: temp, Voltage: volts}, http.StatusOK)
}
