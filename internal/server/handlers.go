package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"orderconsumer/internal/interfaces"
	"strconv"
	"time"
)

const defaultDeadLetterLimit = 100

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ConsumerResponse describes one consumer
type ConsumerResponse struct {
	GroupID string `json:"group_id"`
	Topic   string `json:"topic"`
	Paused  bool   `json:"paused"`
}

func consumerResponse(c interfaces.ConsumerControl) ConsumerResponse {
	return ConsumerResponse{GroupID: c.GroupID(), Topic: c.Topic(), Paused: c.Paused()}
}

// handleHealth handles GET /health requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if len(s.deps.Checks) > 0 {
		response.Checks = make(map[string]string, len(s.deps.Checks))
		for name, check := range s.deps.Checks {
			if err := check(r.Context()); err != nil {
				response.Checks[name] = err.Error()
				response.Status = "degraded"
				statusCode = http.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}
	}

	s.writeJSONResponse(w, statusCode, response)
}

// handleListConsumers handles GET /consumers requests
func (s *Server) handleListConsumers(w http.ResponseWriter, r *http.Request) {
	controls := s.deps.Consumers.List()
	consumers := make([]ConsumerResponse, 0, len(controls))
	for _, c := range controls {
		consumers = append(consumers, consumerResponse(c))
	}

	s.writeJSONResponse(w, http.StatusOK, consumers)
}

// handlePauseConsumer handles POST /consumers/{group_id}/pause requests
func (s *Server) handlePauseConsumer(w http.ResponseWriter, r *http.Request) {
	c, ok := s.consumer(w, r)
	if !ok {
		return
	}
	c.Pause()
	s.logger.Info().Str("group_id", c.GroupID()).Str("remote_addr", r.RemoteAddr).Msg("Consumer paused by operator")

	s.writeJSONResponse(w, http.StatusOK, consumerResponse(c))
}

// handleResumeConsumer handles POST /consumers/{group_id}/resume requests
func (s *Server) handleResumeConsumer(w http.ResponseWriter, r *http.Request) {
	c, ok := s.consumer(w, r)
	if !ok {
		return
	}
	c.Resume()
	s.logger.Info().Str("group_id", c.GroupID()).Str("remote_addr", r.RemoteAddr).Msg("Consumer resumed by operator")

	s.writeJSONResponse(w, http.StatusOK, consumerResponse(c))
}

func (s *Server) consumer(w http.ResponseWriter, r *http.Request) (interfaces.ConsumerControl, bool) {
	groupID := r.PathValue("group_id")
	c, ok := s.deps.Consumers.Get(groupID)
	if !ok {
		s.writeErrorResponse(w, http.StatusNotFound, "Consumer not found", groupID)
		return nil, false
	}
	return c, true
}

// handleListDeadLetters handles GET /dead-letters requests
func (s *Server) handleListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeadLetterLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid limit", raw)
			return
		}
		limit = n
	}

	var (
		messages []interfaces.DeadLetterMessage
		err      error
	)
	if reason := r.URL.Query().Get("reason"); reason != "" {
		messages, err = s.deps.DeadLetters.GetByReason(reason, limit)
	} else {
		messages, err = s.deps.DeadLetters.Get(limit)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list dead letters")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, messages)
}

// handleDeadLetterStats handles GET /dead-letters/stats requests
func (s *Server) handleDeadLetterStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, s.deps.DeadLetters.Statistics())
}

// handleReplayDeadLetter handles POST /dead-letters/{id}/replay requests, the payload goes to the replay topic
func (s *Server) handleReplayDeadLetter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	message, err := s.deps.DeadLetters.Retry(id, func(msg interfaces.DeadLetterMessage) error {
		return s.deps.Publisher.Publish(r.Context(), interfaces.OutboundMessage{
			Topic: s.deps.ReplayTopic,
			Key:   []byte(s.deps.ReplayTopic),
			Value: msg.Message,
			Headers: map[string]string{
				"replayed-from": msg.ID,
			},
			Time: time.Now(),
		})
	})
	switch {
	case errors.Is(err, interfaces.ErrDeadLetterNotFound), errors.Is(err, interfaces.ErrNothingToReplay):
		s.writeErrorResponse(w, http.StatusNotFound, "Dead letter not replayable", err.Error())
		return
	case err != nil:
		s.logger.Error().
			Err(err).
			Str("message_id", id).
			Str("topic", s.deps.ReplayTopic).
			Msg("Failed to replay dead letter")
		s.writeErrorResponse(w, http.StatusBadGateway, "Replay failed", err.Error())
		return
	}

	s.logger.Info().
		Str("message_id", id).
		Str("order_reference", message.OrderRef).
		Str("topic", s.deps.ReplayTopic).
		Msg("Dead letter replayed")
	s.writeJSONResponse(w, http.StatusAccepted, message)
}

// handleClearDeadLetters handles DELETE /dead-letters requests
func (s *Server) handleClearDeadLetters(w http.ResponseWriter, r *http.Request) {
	cleared := s.deps.DeadLetters.GetMessageCount()
	s.deps.DeadLetters.Clear()

	s.logger.Warn().Int("cleared", cleared).Str("remote_addr", r.RemoteAddr).Msg("Dead letter queue cleared by operator")
	s.writeJSONResponse(w, http.StatusOK, map[string]int{"cleared": cleared})
}

// handleCacheSize handles GET /cache requests
func (s *Server) handleCacheSize(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]int{
		"size":     s.deps.Cache.SizeCache(),
		"capacity": s.deps.Cache.CapacityCache(),
	})
}

// handleFlushCache handles DELETE /cache requests
func (s *Server) handleFlushCache(w http.ResponseWriter, r *http.Request) {
	flushed := s.deps.Cache.SizeCache()
	s.deps.Cache.FlushCache()

	s.logger.Info().Int("flushed", flushed).Msg("Lookup cache flushed by operator")
	s.writeJSONResponse(w, http.StatusOK, map[string]int{"flushed": flushed})
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response in JSON format
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message, details string) {
	errorResp := ErrorResponse{
		Error:   message,
		Message: details,
	}

	s.writeJSONResponse(w, statusCode, errorResp)
}
