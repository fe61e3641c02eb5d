package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classroomai/gateway/pkg/agentruntime"
	"github.com/classroomai/gateway/pkg/artifact"
	"github.com/classroomai/gateway/pkg/convo"
	"github.com/classroomai/gateway/pkg/model"
	"github.com/classroomai/gateway/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	provider := &model.MockProvider{Script: model.Script{
		{Kind: model.EventTextStart, PartID: "p1"},
		{Kind: model.EventTextDelta, PartID: "p1", Delta: "hello there"},
		{Kind: model.EventTextEnd, PartID: "p1"},
		{Kind: model.EventStreamEnd},
	}}

	budgets := agentruntime.DefaultBudgets()
	budgets.MaxTurnDuration = 5 * time.Second
	budgets.PerToolTimeout = 2 * time.Second
	budgets.HeartbeatInterval = time.Hour

	rt := agentruntime.NewRuntime(
		provider,
		tools.NewRegistry(),
		convo.NewMemoryStore(),
		artifact.NewMemoryStore(),
		nil,
		convo.NewTokenCounter(nil),
		budgets,
	)

	return New(Options{Runtime: rt})
}

func (s *Server) testHandler() http.Handler {
	router := chi.NewRouter()
	router.Get("/api/health", s.handleHealth)
	router.Post("/api/conversation/stream", s.handleConversationStream)
	router.Post("/api/conversation", s.handleConversation)
	return router
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.testHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestHandleConversation_MissingMessage(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(ConversationRequest{TeacherID: "t-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversation", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.testHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleConversation_NonStreamingAggregation(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(ConversationRequest{TeacherID: "t-1", Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversation", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.testHandler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var reply conversationReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "hello there", reply.Reply)
	assert.NotEmpty(t, reply.ConversationID)
}

func TestHandleConversation_ConcurrentSameConversationRejected(t *testing.T) {
	s := newTestServer()
	require.True(t, s.lockConversation("conv-1"))
	defer s.unlockConversation("conv-1")

	body, _ := json.Marshal(ConversationRequest{TeacherID: "t-1", Message: "hi", ConversationID: "conv-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversation", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.testHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
