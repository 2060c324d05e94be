package controller

import (
	"github.com/gofiber/fiber/v2"

	"querymate-be/internal/dto"
	"querymate-be/internal/pkg/serverutils"
	"querymate-be/internal/service"
)

type IContextSessionController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Get(ctx *fiber.Ctx) error
	PostMessage(ctx *fiber.Ctx) error
	Complete(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
}

type contextSessionController struct {
	service service.IContextSessionService
}

func NewContextSessionController(service service.IContextSessionService) IContextSessionController {
	return &contextSessionController{service: service}
}

func (c *contextSessionController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/context-session", auth)
	h.Get("", c.Get)
	h.Post("/message", c.PostMessage)
	h.Post("/complete", c.Complete)
	h.Post("/update", c.Update)
	h.Delete("", c.Reset)
}

func (c *contextSessionController) Get(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetSession(ctx.UserContext(), userId)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *contextSessionController) PostMessage(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.PostMessageRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.PostMessage(ctx.UserContext(), userId, req.Message)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *contextSessionController) Complete(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CompleteSessionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	if err := c.service.CompleteSession(ctx.UserContext(), userId, req.FinalContext); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(dto.OkResponse{Ok: true})
}

func (c *contextSessionController) Update(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.UpdateSession(ctx.UserContext(), userId)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *contextSessionController) Reset(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.ResetSession(ctx.UserContext(), userId); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(dto.OkResponse{Ok: true})
}
