package session

import (
	"context"
	"fmt"
	"log"

	"github.com/poinbot/poinbot/internal/app/commands"
	"github.com/poinbot/poinbot/internal/domain"
)

// ─── AI Passthrough ─────────────────────────────────────────────────────────
// Free text, unknown keywords, and media prompts go to the AI collaborator.
// One attempt, no retry: failures are reported generically and logged for
// operators. These run outside the user lock so a slow backend never
// blocks the sender's next event.

func (e *Engine) chat(ctx context.Context, userID, text string) {
	resp, err := e.ai.Chat(ctx, userID, text)
	if err != nil {
		e.metrics.AIRequests.WithLabelValues("error").Inc()
		log.Printf("[session] chat for %s failed: %v", userID, err)
		e.reply(ctx, userID, commands.ErrorReply(domain.ErrUpstream))
		return
	}
	e.metrics.AIRequests.WithLabelValues("ok").Inc()
	e.reply(ctx, userID, resp)
}

// explainUnknown asks the assistant to politely reject an unrecognized
// command. Best effort: if the backend is down, fall back to a fixed hint.
func (e *Engine) explainUnknown(ctx context.Context, userID, keyword string) {
	prompt := fmt.Sprintf(
		"The user typed the command %q, which this bot does not recognize. "+
			"Politely explain that the command is invalid and suggest typing %smenu for the command list.",
		e.cfg.Prefix+keyword, e.cfg.Prefix)
	resp, err := e.ai.Chat(ctx, userID, prompt)
	if err != nil {
		e.metrics.AIRequests.WithLabelValues("error").Inc()
		log.Printf("[session] unknown-command prompt for %s failed: %v", userID, err)
		e.reply(ctx, userID, fmt.Sprintf("Unknown command. Type %smenu for the command list.", e.cfg.Prefix))
		return
	}
	e.metrics.AIRequests.WithLabelValues("ok").Inc()
	e.reply(ctx, userID, resp)
}

func (e *Engine) generateImage(ctx context.Context, userID, prompt string) {
	mime, data, err := e.ai.GenerateImage(ctx, prompt)
	if err != nil {
		e.metrics.AIRequests.WithLabelValues("error").Inc()
		log.Printf("[session] image for %s failed: %v", userID, err)
		e.reply(ctx, userID, commands.ErrorReply(domain.ErrUpstream))
		return
	}
	e.metrics.AIRequests.WithLabelValues("ok").Inc()
	if err := e.msgr.SendMedia(ctx, userID, mime, data, prompt); err != nil {
		log.Printf("[session] send media to %s failed: %v", userID, err)
	}
}

func (e *Engine) generateVideo(ctx context.Context, userID, prompt string) {
	url, err := e.ai.GenerateVideo(ctx, prompt)
	if err != nil {
		e.metrics.AIRequests.WithLabelValues("error").Inc()
		log.Printf("[session] video for %s failed: %v", userID, err)
		e.reply(ctx, userID, commands.ErrorReply(domain.ErrUpstream))
		return
	}
	e.metrics.AIRequests.WithLabelValues("ok").Inc()
	e.reply(ctx, userID, "Your video is ready: "+url)
}
