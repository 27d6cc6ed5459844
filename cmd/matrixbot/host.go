// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/matrixbot/backend"
)

// replier is the part of *backend.Backend the echo host uses.
type replier interface {
	BotIdentifier() backend.Person
	IsFromSelf(message backend.Message) bool
	BuildReply(message backend.Message, text string) backend.Message
	SendMessage(ctx context.Context, message backend.Message) (backend.SendResult, error)
}

// botHost logs backend lifecycle events and, in echo mode, answers
// text messages.
type botHost struct {
	logger *slog.Logger
	echo   bool
	bot    replier
}

func (h *botHost) Deliver(ctx context.Context, message backend.Message) {
	h.logger.Info("message received",
		"room_id", message.To.ID(),
		"sender", message.From.ID(),
		"event_id", message.EventID,
	)
	if !h.echo || h.bot.IsFromSelf(message) {
		return
	}

	result, err := h.bot.SendMessage(ctx, h.bot.BuildReply(message, message.Body))
	if err != nil {
		h.logger.Error("echo reply failed",
			"room_id", message.To.ID(),
			"error", err,
		)
		return
	}
	h.logger.Debug("echo reply sent",
		"room_id", result.RoomID,
		"event_id", result.EventID,
	)
}

func (h *botHost) Connected() {
	h.logger.Info("connected", "user_id", h.bot.BotIdentifier().ID())
}

func (h *botHost) Disconnected() {
	h.logger.Info("disconnected")
}
