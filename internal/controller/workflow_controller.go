package controller

import (
	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/pkg/serverutils"
	"mnp-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWorkflowController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Start(ctx *fiber.Ctx) error
	Advance(ctx *fiber.Ctx) error
	Skip(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	Current(ctx *fiber.Ctx) error
}

type workflowController struct {
	workflowService service.IWorkflowService
}

func NewWorkflowController(workflowService service.IWorkflowService) IWorkflowController {
	return &workflowController{workflowService: workflowService}
}

func (c *workflowController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/workflow/v1", jwtMiddleware)
	h.Post("/start", c.Start)
	h.Post("/advance", c.Advance)
	h.Post("/skip", c.Skip)
	h.Post("/reset", c.Reset)
	h.Get("/:sessionId", c.Current)
}

// parseWorkflowBody decodes and validates a request body into req.
func parseWorkflowBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.ErrBadRequest
	}
	return serverutils.ValidateRequest(req)
}

func (c *workflowController) Start(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	var req dto.StartWorkflowRequest
	if err := parseWorkflowBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.workflowService.Start(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success start workflow", res))
}

func (c *workflowController) Advance(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	var req dto.AdvanceWorkflowRequest
	if err := parseWorkflowBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.workflowService.Advance(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success advance workflow", res))
}

func (c *workflowController) Skip(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	var req dto.SkipWorkflowRequest
	if err := parseWorkflowBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.workflowService.Skip(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success skip step", res))
}

func (c *workflowController) Reset(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	var req dto.ResetWorkflowRequest
	if err := parseWorkflowBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.workflowService.Reset(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success reset workflow", res))
}

func (c *workflowController) Current(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	sessionId, err := serverutils.ParamUUID(ctx, "sessionId")
	if err != nil {
		return err
	}

	res, err := c.workflowService.Current(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get workflow", res))
}
