package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/classroomai/gateway/pkg/agentruntime"
	"github.com/classroomai/gateway/pkg/auth"
	"github.com/classroomai/gateway/pkg/stream"
	"github.com/google/uuid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

func (s *Server) handleConversationStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	if !s.lockConversation(req.ConversationID) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a turn is already in progress for this conversation"})
		return
	}
	defer s.unlockConversation(req.ConversationID)

	sseWriter, err := stream.NewSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	if runErr := s.opts.Runtime.RunTurn(r.Context(), toTurnInput(req), sseWriter); runErr != nil {
		slog.Error("gateway: turn failed", "conversation_id", req.ConversationID, "error", runErr)
	}
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	if !s.lockConversation(req.ConversationID) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a turn is already in progress for this conversation"})
		return
	}
	defer s.unlockConversation(req.ConversationID)

	buf := &stream.BufferWriter{}
	runErr := s.opts.Runtime.RunTurn(r.Context(), toTurnInput(req), buf)
	if runErr != nil {
		slog.Error("gateway: turn failed", "conversation_id", req.ConversationID, "error", runErr)
	}

	writeJSON(w, http.StatusOK, aggregateEvents(req.ConversationID, buf.Events))
}

// decodeRequest parses and validates the request body, minting a
// conversation id when the caller omits one, and writes the matching
// error response on failure. When the request was authenticated, the
// validated JWT's teacher id is authoritative over the body's teacherId.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (ConversationRequest, bool) {
	var req ConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "malformed request body"})
		return req, false
	}
	if req.Message == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "message is required"})
		return req, false
	}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil && claims.TeacherID != "" {
		req.TeacherID = claims.TeacherID
	}
	if req.TeacherID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "teacherId is required"})
		return req, false
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	return req, true
}

func toTurnInput(req ConversationRequest) agentruntime.TurnInput {
	return agentruntime.TurnInput{
		ConversationID: req.ConversationID,
		TeacherID:      req.TeacherID,
		ClassID:        req.classID(),
		Message:        req.Message,
	}
}

// conversationReply is the non-streaming endpoint's terminal aggregation:
// the same wire events the streaming endpoint would have emitted, plus
// the concatenated assistant text for callers that only want the answer.
type conversationReply struct {
	ConversationID string             `json:"conversationId"`
	Reply          string             `json:"reply"`
	FinishReason   string             `json:"finishReason"`
	Events         []stream.WireEvent `json:"events"`
}

func aggregateEvents(conversationID string, events []stream.WireEvent) conversationReply {
	reply := conversationReply{ConversationID: conversationID, Events: events}
	for _, ev := range events {
		switch ev.Type {
		case stream.TypeTextDelta:
			reply.Reply += ev.Delta
		case stream.TypeFinish:
			reply.FinishReason = ev.FinishReason
		}
	}
	return reply
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
