package controller

import (
	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/pkg/serverutils"
	"mnp-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Backfill(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	knowledgeService service.IKnowledgeService
}

func NewKnowledgeController(knowledgeService service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{knowledgeService: knowledgeService}
}

// RegisterRoutes mounts the knowledge admin surface. Writes are limited to admins.
func (c *knowledgeController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/knowledge/v1", jwtMiddleware, serverutils.RequireRole(serverutils.RoleAgent, serverutils.RoleAdmin))
	adminOnly := serverutils.RequireRole(serverutils.RoleAdmin)

	h.Get("", c.List)
	h.Get("/search", c.Search)
	h.Post("/backfill", adminOnly, c.Backfill)
	h.Post("", adminOnly, c.Create)
	h.Get("/:id", c.Show)
	h.Put("/:id", adminOnly, c.Update)
	h.Delete("/:id", adminOnly, c.Delete)
}

func (c *knowledgeController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateKnowledgeItemRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create knowledge item", res))
}

func (c *knowledgeController) Update(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateKnowledgeItemRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.Update(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update knowledge item", res))
}

func (c *knowledgeController) Show(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.knowledgeService.Get(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get knowledge item", res))
}

func (c *knowledgeController) Delete(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.knowledgeService.Deactivate(ctx.UserContext(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success deactivate knowledge item", nil))
}

func (c *knowledgeController) List(ctx *fiber.Ctx) error {
	var query dto.ListKnowledgeQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.knowledgeService.List(ctx.UserContext(), &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list knowledge items", res))
}

func (c *knowledgeController) Search(ctx *fiber.Ctx) error {
	var query dto.SearchKnowledgeQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.knowledgeService.Search(ctx.UserContext(), &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search knowledge", res))
}

func (c *knowledgeController) Backfill(ctx *fiber.Ctx) error {
	n, err := c.knowledgeService.Backfill(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success queue embedding backfill", dto.BackfillResponse{Enqueued: n}))
}
