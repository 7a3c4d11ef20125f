package httpserver

import (
	"errors"
	"net/http"

	domainerrors "sheepyard/contexts/community/mention-ranker/domain/errors"
	httptransport "sheepyard/contexts/community/mention-ranker/transport/http"
)

// handleRankedMembers godoc
// @Summary List members ordered by how recently the caller mentioned them
// @Tags mention-ranker
// @Produce json
// @Param X-User-Id header string true "Acting member"
// @Success 200 {object} httptransport.RankedMembersResponse
// @Router /api/v1/members/ranked [get]
func (s *Server) handleRankedMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.mentions.Handler.RankedMembersHandler(r.Context(), userID)
	if err != nil {
		s.writeMentionRankerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordMentions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req httptransport.RecordMentionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.mentions.Handler.RecordMentionsHandler(r.Context(), userID, req); err != nil {
		s.writeMentionRankerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeMentionRankerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrCreatorRequired),
		errors.Is(err, domainerrors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("mention ranker request failed",
			"event", "http_mention_ranker_request_failed",
			"module", moduleName,
			"layer", "platform",
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
