package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
	"github.com/qs3c/sub_go_server/internal/testutil"
)

func setupChatRoutes(t *testing.T) *testEnv {
	t.Helper()
	env := setupEnv(t)
	h := NewChatHandler(env.chats)
	g := env.authed()
	g.GET("/chats", h.List)
	g.POST("/chats", h.Create)
	g.GET("/chats/:id/messages", h.Messages)
	g.POST("/chats/:id/messages", h.AddMessage)
	g.POST("/chatbot", h.Reply)
	return env
}

func createChat(t *testing.T, env *testEnv, token string, body interface{}) int64 {
	t.Helper()
	w := performRequest(env.router, http.MethodPost, "/chats", body, token)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	return int64(dataMap(t, resp)["id"].(float64))
}

func TestChatHandler_CreateAndList(t *testing.T) {
	env := setupChatRoutes(t)
	user := testutil.TestUser(t, env.db)
	token := tokenFor(t, user)

	createChat(t, env, token, dto.CreateChatRequest{Title: "Billing question"})
	createChat(t, env, token, nil)

	w := performRequest(env.router, http.MethodGet, "/chats", nil, token)
	list := dataList(t, parseResponse(t, w))
	assert.Len(t, list, 2)
}

func TestChatHandler_Messages(t *testing.T) {
	env := setupChatRoutes(t)
	user := testutil.TestUser(t, env.db)
	stranger := testutil.TestUser(t, env.db)
	token := tokenFor(t, user)
	chatID := createChat(t, env, token, dto.CreateChatRequest{Title: "Hi"})
	path := fmt.Sprintf("/chats/%d/messages", chatID)

	w := performRequest(env.router, http.MethodPost, path, dto.AddMessageRequest{Sender: "user", Text: "hello there"}, token)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(env.router, http.MethodPost, path, dto.AddMessageRequest{Sender: "robot", Text: "x"}, token)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	w = performRequest(env.router, http.MethodGet, path, nil, token)
	list := dataList(t, parseResponse(t, w))
	require.Len(t, list, 1)
	assert.Equal(t, "hello there", list[0].(map[string]interface{})["text"])

	w = performRequest(env.router, http.MethodGet, path, nil, tokenFor(t, stranger))
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestChatHandler_Reply(t *testing.T) {
	env := setupChatRoutes(t)
	user := testutil.TestUser(t, env.db)
	token := tokenFor(t, user)
	chatID := createChat(t, env, token, nil)

	w := performRequest(env.router, http.MethodPost, "/chatbot", dto.ChatbotRequest{ChatID: chatID, Message: "hello"}, token)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, service.ReplyLocal, dataMap(t, resp)["source"])

	// 未配置外部服务时返回固定提示
	w = performRequest(env.router, http.MethodPost, "/chatbot", dto.ChatbotRequest{ChatID: chatID, Message: "why is my bill higher this month?"}, token)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, service.ReplyFallback, dataMap(t, resp)["source"])

	w = performRequest(env.router, http.MethodGet, fmt.Sprintf("/chats/%d/messages", chatID), nil, token)
	assert.Len(t, dataList(t, parseResponse(t, w)), 4)
}

func TestChatHandler_Reply_UnknownChat(t *testing.T) {
	env := setupChatRoutes(t)
	user := testutil.TestUser(t, env.db)

	w := performRequest(env.router, http.MethodPost, "/chatbot", dto.ChatbotRequest{ChatID: 42, Message: "hello"}, tokenFor(t, user))

	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}
