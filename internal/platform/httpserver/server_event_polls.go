package httpserver

import (
	"errors"
	"net/http"

	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	httptransport "sheepyard/contexts/scheduling/event-polls/transport/http"

	"github.com/go-chi/chi/v5"
)

// handleCreatePoll godoc
// @Summary Create a poll
// @Tags event-polls
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Acting member"
// @Param body body httptransport.CreatePollRequest true "Poll"
// @Success 201 {object} httptransport.PollResponse
// @Failure 400 {object} errorResponse
// @Router /api/v1/polls [post]
func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req httptransport.CreatePollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.CreatePollHandler(r.Context(), userID, req)
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ListPollsHandler(r.Context())
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.GetPollHandler(r.Context(), chi.URLParam(r, "poll_id"))
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req httptransport.UpdatePollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.UpdatePollHandler(r.Context(), userID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.polls.Handler.DeletePollHandler(r.Context(), userID, chi.URLParam(r, "poll_id")); err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleModifySeries godoc
// @Summary Replace the future occurrences of a recurring poll
// @Tags event-polls
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Acting member"
// @Param poll_id path string true "Poll ID"
// @Param body body httptransport.ModifySeriesRequest true "New rule"
// @Success 200 {object} httptransport.PollResponse
// @Router /api/v1/polls/{poll_id}/series [post]
func (s *Server) handleModifySeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req httptransport.ModifySeriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.ModifySeriesHandler(r.Context(), userID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSharePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req httptransport.SharePollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.SharePollHandler(r.Context(), userID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	body, err := s.polls.Handler.CalendarHandler(r.Context(), chi.URLParam(r, "poll_id"))
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="event.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleToggleVote godoc
// @Summary Add or remove the caller's vote on a slot
// @Tags event-polls
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Voting member"
// @Param body body httptransport.ToggleVoteRequest true "Slot"
// @Success 200 {object} httptransport.ToggleVoteResponse
// @Failure 404 {object} errorResponse
// @Router /api/v1/votes [post]
func (s *Server) handleToggleVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req httptransport.ToggleVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.ToggleVoteHandler(r.Context(), userID, req)
	if err != nil {
		s.writeEventPollsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLivePoll(w http.ResponseWriter, r *http.Request) {
	s.polls.Live.Serve(w, r, chi.URLParam(r, "poll_id"))
}

func (s *Server) writeEventPollsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidPollInput),
		errors.Is(err, domainerrors.ErrNoOptions),
		errors.Is(err, domainerrors.ErrInvalidTimeRange),
		errors.Is(err, domainerrors.ErrInvalidRecurrenceRule),
		errors.Is(err, domainerrors.ErrInvalidDeadline),
		errors.Is(err, domainerrors.ErrNotRecurring),
		errors.Is(err, domainerrors.ErrMemberRequired),
		errors.Is(err, domainerrors.ErrChannelRequired):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domainerrors.ErrPollNotFound),
		errors.Is(err, domainerrors.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domainerrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("event polls request failed",
			"event", "http_event_polls_request_failed",
			"module", moduleName,
			"layer", "platform",
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
