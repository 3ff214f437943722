package controllers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/internal/bot"
	"github.com/chatrelay/chatrelay/internal/domain"
)

// genericFailureText is what the sender sees when an internal failure has no
// user-facing rendering.
const genericFailureText = "Something went wrong. Please try again later."

// WebhookController receives chat platform events and drives the bot.
type WebhookController struct {
	handler           *bot.Handler
	verificationToken string
}

type WebhookControllerDependencies struct {
	Handler *bot.Handler

	// VerificationToken, when non-empty, must match the token field of every
	// inbound event.
	VerificationToken string
}

func NewWebhookController(deps WebhookControllerDependencies) *WebhookController {
	return &WebhookController{
		handler:           deps.Handler,
		verificationToken: deps.VerificationToken,
	}
}

// HandleEvent is the single webhook endpoint. Responses always use HTTP 200;
// failures are rendered as chat text, never as a stack trace.
func (c *WebhookController) HandleEvent(ctx fiber.Ctx) error {
	var event chatEvent

	if err := ctx.Bind().Body(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid event body")
	}

	if c.verificationToken != "" && event.Token != c.verificationToken {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid verification token")
	}

	requestID := uuid.NewString()
	logger := log.With().
		Str("request_id", requestID).
		Str("event_type", event.Type).
		Str("space", event.Space.Name).
		Logger()

	switch event.Type {
	case eventTypeMessage:
		ev := event.toMessageReceived()
		resp, err := c.handler.HandleMessage(ctx.RequestCtx(), ev)
		if err != nil {
			if domain.IsUserFacing(err) {
				logger.Info().Str("reason", err.Error()).Msg("Rejected message")
				return ctx.JSON(chatResponse{Text: err.Error()})
			}
			logger.Error().Str("cause_chain", domain.FormatCauseChain(err)).Msg("Message handling failed")
			return ctx.JSON(chatResponse{Text: genericFailureText})
		}
		if resp.Empty() {
			return ctx.SendStatus(fiber.StatusOK)
		}
		return ctx.JSON(renderResponse(resp))

	case eventTypeAddedToSpace:
		resp, err := c.handler.HandleAdded(ctx.RequestCtx())
		if err != nil {
			logger.Error().Str("cause_chain", domain.FormatCauseChain(err)).Msg("Greeting failed")
			return ctx.JSON(chatResponse{Text: genericFailureText})
		}
		return ctx.JSON(renderResponse(resp))

	case eventTypeRemovedFromSpace:
		removed := domain.ConversationRemoved{Scope: domain.Scope(event.Space.Name)}
		if err := c.handler.HandleRemoved(ctx.RequestCtx(), removed); err != nil {
			logger.Error().Str("cause_chain", domain.FormatCauseChain(err)).Msg("Teardown failed")
		}
		return ctx.SendStatus(fiber.StatusOK)

	default:
		logger.Warn().Msg("Ignoring unknown event type")
		return ctx.SendStatus(fiber.StatusOK)
	}
}
