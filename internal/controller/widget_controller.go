package controller

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"

	"querymate-be/internal/dto"
	"querymate-be/internal/pkg/serverutils"
	"querymate-be/internal/service"
)

//go:embed assets/widget.js
var widgetScript []byte

type IWidgetController interface {
	RegisterRoutes(app fiber.Router, api fiber.Router)
	Script(ctx *fiber.Ctx) error
	Settings(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
}

type widgetController struct {
	service service.IWidgetChatService
}

func NewWidgetController(service service.IWidgetChatService) IWidgetController {
	return &widgetController{service: service}
}

func (c *widgetController) RegisterRoutes(app fiber.Router, api fiber.Router) {
	app.Get("/widget.js", c.Script)

	h := api.Group("/widget", serverutils.ApiKeyMiddleware())
	h.Get("/settings", c.Settings)
	h.Post("/chat", c.Chat)
}

func (c *widgetController) Script(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, "application/javascript; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return ctx.Send(widgetScript)
}

func (c *widgetController) Settings(ctx *fiber.Ctx) error {
	settings, err := c.service.Settings(ctx.UserContext(), serverutils.ApiKey(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(dto.WidgetSettingsResponse{WidgetSettings: settings})
}

func (c *widgetController) Chat(ctx *fiber.Ctx) error {
	var req dto.WidgetChatRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	reply, err := c.service.Chat(ctx.UserContext(), serverutils.ApiKey(ctx), req.Message)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(dto.WidgetChatResponse{Reply: reply})
}
