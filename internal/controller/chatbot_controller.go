package controller

import (
	"context"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/pkg/rag/executor"

	"github.com/gofiber/fiber/v2"
)

// TurnService is satisfied by *executor.TurnExecutor.
type TurnService interface {
	Execute(ctx context.Context, email, question string) (*executor.TurnResult, error)
	Wipe(ctx context.Context, email string) error
}

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	WipeHistory(ctx *fiber.Ctx) error
}

type chatbotController struct {
	turns TurnService
}

func NewChatbotController(turns TurnService) IChatbotController {
	return &chatbotController{turns: turns}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("ask", c.Ask)
	h.Delete("history", c.WipeHistory)
}

func (c *chatbotController) Ask(ctx *fiber.Ctx) error {
	var req dto.ChatAskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.turns.Execute(ctx.UserContext(), req.Email, req.Question)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", toAskResponse(res)))
}

func (c *chatbotController) WipeHistory(ctx *fiber.Ctx) error {
	var req dto.WipeHistoryRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.turns.Wipe(ctx.UserContext(), req.Email); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success wipe history", nil))
}

func toAskResponse(res *executor.TurnResult) dto.ChatAskResponse {
	out := dto.ChatAskResponse{
		Reply:           res.Reply,
		TopicName:       res.TopicName,
		Phase:           string(res.Phase),
		TurnKind:        res.Kind,
		DiagnosisOnly:   res.DiagnosisOnly,
		RetrievalStatus: string(res.RetrievalStatus),
	}
	if res.Topic.IsKnown() {
		out.Topic = res.Topic.String()
	}
	for _, s := range res.Sources {
		out.Sources = append(out.Sources, dto.SourceDTO{
			Source:   s.Source,
			Category: s.Category,
			Score:    s.Score,
		})
	}
	return out
}
