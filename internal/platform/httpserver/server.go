package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	networkscoreservice "ballotnet/contexts/opinion-network/network-score-service"
	scoreerrors "ballotnet/contexts/opinion-network/network-score-service/domain/errors"
	scorehttp "ballotnet/contexts/opinion-network/network-score-service/transport/http"
	positionservice "ballotnet/contexts/opinion-network/position-service"
	positionerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	positionhttp "ballotnet/contexts/opinion-network/position-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "ballotnet/internal/platform/httpserver/docs"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	positions    positionservice.Module
	networkScore networkscoreservice.Module
}

func New(
	positions positionservice.Module,
	networkScore networkscoreservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		positions:    positions,
		networkScore: networkScore,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/positions/v1/save", s.handleSavePosition)
	s.mux.HandleFunc("POST /api/positions/v1/toggle", s.handleToggleStance)
	s.mux.HandleFunc("POST /api/positions/v1/move", s.handleMovePositions)
	s.mux.HandleFunc("POST /api/positions/v1/merge", s.handleMergeVoterPositions)
	s.mux.HandleFunc("GET /api/positions/v1/{visibility}/{position_id}", s.handleRetrievePosition)
	s.mux.HandleFunc("GET /api/positions/v1/counts/{ballot_item_kind}/{ballot_item_id}", s.handleStanceCounts)

	s.mux.HandleFunc("POST /api/network-score/v1/rebuild", s.handleRebuildNetworkScore)
	s.mux.HandleFunc("GET /api/network-score/v1/{voter_id}/{election_id}/status", s.handleCacheStatus)
	s.mux.HandleFunc(
		"GET /api/network-score/v1/{voter_id}/{election_id}/{ballot_item_kind}/{ballot_item_id}",
		s.handleNetworkScore,
	)
}

func (s *Server) handleSavePosition(w http.ResponseWriter, r *http.Request) {
	var req positionhttp.SavePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePositionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.positions.Handler.SavePositionHandler(r.Context(), req)
	if err != nil {
		writePositionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggleStance(w http.ResponseWriter, r *http.Request) {
	var req positionhttp.ToggleStanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePositionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.positions.Handler.ToggleStanceHandler(r.Context(), req)
	if err != nil {
		writePositionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMovePositions(w http.ResponseWriter, r *http.Request) {
	var req positionhttp.MovePositionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePositionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.positions.Handler.MovePositionsHandler(r.Context(), req)
	if err != nil {
		writePositionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMergeVoterPositions(w http.ResponseWriter, r *http.Request) {
	var req positionhttp.MergeVoterPositionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePositionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.positions.Handler.MergeVoterPositionsHandler(r.Context(), req)
	if err != nil {
		writePositionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetrievePosition(w http.ResponseWriter, r *http.Request) {
	resp, err := s.positions.Handler.RetrievePositionHandler(
		r.Context(),
		r.PathValue("visibility"),
		r.PathValue("position_id"),
	)
	if err != nil {
		writePositionDomainError(w, err)
		return
	}
	if !resp.Found {
		writePositionError(w, http.StatusNotFound, "position_not_found", "position does not exist")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStanceCounts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.positions.Handler.StanceCountsHandler(
		r.Context(),
		r.PathValue("ballot_item_kind"),
		r.PathValue("ballot_item_id"),
	)
	if err != nil {
		writePositionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRebuildNetworkScore(w http.ResponseWriter, r *http.Request) {
	var req scorehttp.RebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeScoreError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.networkScore.Handler.RebuildHandler(r.Context(), req)
	if err != nil {
		writeScoreDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNetworkScore(w http.ResponseWriter, r *http.Request) {
	resp, err := s.networkScore.Handler.NetworkScoreHandler(
		r.Context(),
		r.PathValue("voter_id"),
		r.PathValue("election_id"),
		r.PathValue("ballot_item_kind"),
		r.PathValue("ballot_item_id"),
	)
	if err != nil {
		writeScoreDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.networkScore.Handler.CacheStatusHandler(
		r.Context(),
		r.PathValue("voter_id"),
		r.PathValue("election_id"),
	)
	if err != nil {
		writeScoreDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePositionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, positionerrors.ErrInvalidPositionInput),
		errors.Is(err, positionerrors.ErrInvalidVisibility):
		writePositionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, positionerrors.ErrPositionNotFound):
		writePositionError(w, http.StatusNotFound, "position_not_found", err.Error())
	case errors.Is(err, positionerrors.ErrPreconditionFailed):
		writePositionError(w, http.StatusConflict, "precondition_failed", err.Error())
	case errors.Is(err, positionerrors.ErrDuplicateKey):
		writePositionError(w, http.StatusConflict, "duplicate_position", err.Error())
	case errors.Is(err, positionerrors.ErrDestinationOccupied):
		writePositionError(w, http.StatusConflict, "destination_occupied", err.Error())
	default:
		writePositionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeScoreDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scoreerrors.ErrInvalidInput):
		writeScoreError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, scoreerrors.ErrBallotUnavailable):
		writeScoreError(w, http.StatusServiceUnavailable, "ballot_unavailable", err.Error())
	case errors.Is(err, scoreerrors.ErrSocialGraphFailure):
		writeScoreError(w, http.StatusBadGateway, "social_graph_unavailable", err.Error())
	default:
		writeScoreError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePositionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, positionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeScoreError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, scorehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
