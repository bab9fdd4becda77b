package rest

import (
	"net/url"
	"strconv"
	"strings"

	domainTyping "github.com/AzielCF/az-typing/domains/typing"
	pkgError "github.com/AzielCF/az-typing/pkg/error"
	"github.com/AzielCF/az-typing/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Typing struct {
	Service domainTyping.ITypingUsecase
}

func InitRestTyping(app fiber.Router, service domainTyping.ITypingUsecase) Typing {
	rest := Typing{Service: service}
	app.Post("/typing", rest.Notify)
	app.Get("/typing", rest.Overview)
	app.Get("/typing/pm", rest.GetPMGroup)
	app.Get("/typing/stream/:stream_id", rest.GetStreamTopic)
	app.Get("/typing/conversations/:key", rest.GetConversation)

	return rest
}

func (handler *Typing) Notify(c *fiber.Ctx) error {
	var request domainTyping.NotifyRequest
	if err := c.BodyParser(&request); err != nil {
		panic(pkgError.ValidationError("invalid request body: " + err.Error()))
	}

	response, err := handler.Service.Notify(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Typing notification accepted",
		Results: response,
	})
}

func (handler *Typing) Overview(c *fiber.Ctx) error {
	response, err := handler.Service.Overview(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Typists retrieved",
		Results: response,
	})
}

func (handler *Typing) GetPMGroup(c *fiber.Ctx) error {
	ids, err := parseIDs(c.Query("ids"))
	utils.PanicIfNeeded(err)

	response, err := handler.Service.GetPMGroup(c.UserContext(), ids)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Typists retrieved",
		Results: response,
	})
}

func (handler *Typing) GetStreamTopic(c *fiber.Ctx) error {
	streamID, err := strconv.ParseInt(c.Params("stream_id"), 10, 64)
	if err != nil {
		panic(pkgError.ValidationError("stream_id: must be an integer."))
	}

	response, err := handler.Service.GetStreamTopic(c.UserContext(), streamID, c.Query("topic"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Typists retrieved",
		Results: response,
	})
}

func (handler *Typing) GetConversation(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		panic(pkgError.ValidationError("key: invalid escaping."))
	}

	response, err := handler.Service.GetConversation(c.UserContext(), key)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Typists retrieved",
		Results: response,
	})
}

func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, pkgError.ValidationError("ids: cannot be blank.")
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, pkgError.ValidationError("ids: must be a comma separated list of user ids.")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
