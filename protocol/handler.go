// Package protocol turns inbound websocket frames into engine calls. Frames
// are JSON objects of the form {"message": "..."}; malformed or oversized
// input earns the sender a personal error reply and is never broadcast.
package protocol

import (
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"realtime-chat-server/domain"
)

const defaultMaxMessageLength = 500

type inbound struct {
	Message string `json:"message"`
}

type errorReply struct {
	Error string `json:"error"`
}

type Handler struct {
	engine domain.Engine
	log    *slog.Logger
	maxLen int
}

func NewHandler(engine domain.Engine, log *slog.Logger, maxLen int) *Handler {
	if maxLen <= 0 {
		maxLen = defaultMaxMessageLength
	}
	return &Handler{engine: engine, log: log, maxLen: maxLen}
}

func (h *Handler) Handle(sender domain.Sender, roomID string, data []byte) {
	var frame inbound
	if err := json.Unmarshal(data, &frame); err != nil {
		h.log.Warn("invalid frame", "senderId", sender.ID(), "error", err)
		h.reply(sender, "Invalid message format")
		return
	}

	text := strings.TrimSpace(frame.Message)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > h.maxLen {
		h.reply(sender, "Message too long")
		return
	}

	if err := h.engine.SendChat(sender.ID(), roomID, text); err != nil {
		h.log.Warn("chat rejected", "senderId", sender.ID(), "room", roomID, "error", err)
	}
}

func (h *Handler) reply(sender domain.Sender, msg string) {
	if data, err := json.Marshal(errorReply{Error: msg}); err == nil {
		sender.Send(data)
	}
}
