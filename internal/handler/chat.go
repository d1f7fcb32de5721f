package handler

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
	"bookpassport/internal/realtime"
	"bookpassport/internal/transport/http/middleware"
)

// ChatService is what the chat endpoints need from the service layer.
type ChatService interface {
	ResolveGeneral(ctx context.Context) (*model.ChatRoom, error)
	ResolveDirect(ctx context.Context, callerID, otherID string) (*model.ChatRoom, error)
	JoinRoom(ctx context.Context, userID, roomName string) (*model.ChatRoom, error)
	ListMessages(ctx context.Context, userID, roomID string, limit int) (*model.MessageListResponse, error)
	SendMessage(ctx context.Context, userID, email, roomID, content string) (*model.Message, error)
}

type ChatHandler struct {
	chatService ChatService
	hub         *realtime.Hub
	upgrader    websocket.Upgrader
}

// NewChatHandler creates the chat handler. allowedOrigins restricts websocket
// upgrades; empty allows any origin.
func NewChatHandler(chatService ChatService, hub *realtime.Hub, allowedOrigins []string) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// OpenGeneral handles POST /api/chat/rooms/general
func (h *ChatHandler) OpenGeneral(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	room, err := h.chatService.ResolveGeneral(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "open room")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, room)
}

// OpenDirect handles POST /api/chat/rooms/direct/{userId}
func (h *ChatHandler) OpenDirect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	room, err := h.chatService.ResolveDirect(r.Context(), userID, chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, err, "open room")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, room)
}

// ListMessages handles GET /api/chat/rooms/{roomId}/messages
// Returns the whole history oldest first unless ?limit= asks for the newest N.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, ok := parseLimit(w, r, 0)
	if !ok {
		return
	}

	resp, err := h.chatService.ListMessages(r.Context(), userID, chi.URLParam(r, "roomId"), limit)
	if err != nil {
		writeServiceError(w, r, err, "load messages")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// SendMessage handles POST /api/chat/rooms/{roomId}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	email := middleware.GetEmailFromContext(r.Context())
	msg, err := h.chatService.SendMessage(r.Context(), userID, email, chi.URLParam(r, "roomId"), req.Content)
	if err != nil {
		writeServiceError(w, r, err, "send message")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// Subscribe handles GET /ws?room=<name>
// Upgrades to a websocket that receives the room's broadcasts and the user's
// live notifications. Without ?room only notifications are received.
func (h *ChatHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	roomName := strings.TrimSpace(r.URL.Query().Get("room"))
	if roomName != "" {
		if _, err := h.chatService.JoinRoom(r.Context(), userID, roomName); err != nil {
			writeServiceError(w, r, err, "subscribe")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("[ChatHandler] Upgrade failed: user=%s err=%v", userID, err)
		return
	}

	client := realtime.NewClient(h.hub, conn, userID, roomName)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
