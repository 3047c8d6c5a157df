package controller

import (
	"strings"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/pkg/serverutils"
	"mnp-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEscalationController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Initiate(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
	Resolve(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type escalationController struct {
	escalationService service.IEscalationService
}

func NewEscalationController(escalationService service.IEscalationService) IEscalationController {
	return &escalationController{escalationService: escalationService}
}

func (c *escalationController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/escalation/v1", jwtMiddleware)
	agentOnly := serverutils.RequireRole(serverutils.RoleAgent, serverutils.RoleAdmin)

	h.Post("", c.Initiate)
	h.Get("", agentOnly, c.List)
	h.Get("/stats", agentOnly, c.Stats)
	h.Get("/:id", c.Show)
	h.Put("/:id/status", agentOnly, c.UpdateStatus)
	h.Post("/:id/resolve", agentOnly, c.Resolve)
	h.Post("/:id/cancel", c.Cancel)
}

func isAgent(ctx *fiber.Ctx) bool {
	role, _ := ctx.Locals(serverutils.LocalRole).(string)
	return strings.EqualFold(role, serverutils.RoleAgent) || strings.EqualFold(role, serverutils.RoleAdmin)
}

func (c *escalationController) Initiate(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.InitiateEscalationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.escalationService.Initiate(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create ticket", res))
}

func (c *escalationController) Show(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.escalationService.GetTicket(ctx.UserContext(), userId, isAgent(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get ticket", res))
}

func (c *escalationController) UpdateStatus(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateTicketStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.escalationService.UpdateStatus(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update ticket status", res))
}

func (c *escalationController) Resolve(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.ResolveTicketRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.escalationService.Resolve(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success resolve ticket", res))
}

func (c *escalationController) Cancel(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.CancelTicketRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.ErrBadRequest
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.escalationService.Cancel(ctx.UserContext(), userId, isAgent(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success cancel ticket", res))
}

func (c *escalationController) List(ctx *fiber.Ctx) error {
	var query dto.ListTicketsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.escalationService.List(ctx.UserContext(), &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list tickets", res))
}

func (c *escalationController) Stats(ctx *fiber.Ctx) error {
	var query dto.TicketStatsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.escalationService.Stats(ctx.UserContext(), &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get ticket stats", res))
}
