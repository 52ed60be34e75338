package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/helpchat/internal/format"
	"github.com/zhouzirui/helpchat/pkg/utils"
)

// Responder 针对单条访客问题生成回答。
type Responder interface {
	Respond(ctx context.Context, query string) (string, error)
}

// Handler 挂件所调用的欢迎语与问答接口的HTTP处理器
type Handler struct {
	responder Responder
	welcome   string
	title     string
}

// New 创建助手处理器
func New(responder Responder, welcome, title string) *Handler {
	return &Handler{
		responder: responder,
		welcome:   welcome,
		title:     title,
	}
}

// RegisterRoutes 注册挂件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/welcome", h.handleWelcome)
	r.Post("/query", h.handleQuery)
}

// handleWelcome 返回格式化后的欢迎语
func (h *Handler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	utils.RespondMessage(w, http.StatusOK, format.Document(h.title, h.welcome))
}

// handleQuery 回答访客问题
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query string `json:"query"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := strings.TrimSpace(payload.Query)
	if query == "" {
		utils.RespondError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, err := h.responder.Respond(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("component", "assistant_handler").Msg("failed to answer query")
		utils.RespondError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	utils.RespondMessage(w, http.StatusOK, format.Document(h.title, answer))
}
