package controller

import (
	"github.com/gofiber/fiber/v2"

	"querymate-be/internal/dto"
	"querymate-be/internal/pkg/serverutils"
	"querymate-be/internal/service"
)

// IUserController serves the account-scoped resources: the committed
// context document, the api key and the widget appearance.
type IUserController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetContext(ctx *fiber.Ctx) error
	SaveContext(ctx *fiber.Ctx) error
	GetApiKey(ctx *fiber.Ctx) error
	RotateApiKey(ctx *fiber.Ctx) error
	GetWidgetSettings(ctx *fiber.Ctx) error
	UpdateWidgetSettings(ctx *fiber.Ctx) error
}

type userController struct {
	userContext    service.IUserContextService
	apiKeys        service.IApiKeyService
	widgetSettings service.IWidgetSettingsService
}

func NewUserController(
	userContext service.IUserContextService,
	apiKeys service.IApiKeyService,
	widgetSettings service.IWidgetSettingsService,
) IUserController {
	return &userController{
		userContext:    userContext,
		apiKeys:        apiKeys,
		widgetSettings: widgetSettings,
	}
}

func (c *userController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/user", auth)
	h.Get("/context", c.GetContext)
	h.Post("/context", c.SaveContext)
	h.Get("/api-key", c.GetApiKey)
	h.Post("/api-key", c.RotateApiKey)
	h.Get("/widget-settings", c.GetWidgetSettings)
	h.Put("/widget-settings", c.UpdateWidgetSettings)
}

func (c *userController) GetContext(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.userContext.GetContext(ctx.UserContext(), userId)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *userController) SaveContext(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.UserContextRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.userContext.SaveContext(ctx.UserContext(), userId, req.ContextData)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *userController) GetApiKey(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.apiKeys.GetApiKey(ctx.UserContext(), userId)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *userController) RotateApiKey(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.apiKeys.RotateApiKey(ctx.UserContext(), userId)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *userController) GetWidgetSettings(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	settings, err := c.widgetSettings.GetSettings(ctx.UserContext(), userId)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(dto.WidgetSettingsResponse{WidgetSettings: settings})
}

func (c *userController) UpdateWidgetSettings(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.WidgetSettingsRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	settings, err := c.widgetSettings.UpdateSettings(ctx.UserContext(), userId, req.WidgetSettings)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(dto.WidgetSettingsResponse{WidgetSettings: settings})
}
