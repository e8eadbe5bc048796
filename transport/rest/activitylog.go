package rest

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
)

type ActivityController struct {
	Store inkpot.ActivityStore
}

func (c *ActivityController) InstallTo(app fiber.Router) {
	app.Get("/activities/", RequireLogin, c.serveLastActivity)
}

func (c *ActivityController) serveLastActivity(ctx *fiber.Ctx) error {
	user := currentUser(ctx)
	logs, err := c.Store.ByUserId(ctx.Context(), user.Id)
	if err != nil {
		return fmt.Errorf("get logs by user id: %w", err)
	}

	type Log struct {
		Id        int64                  `json:"id"`
		CreatedAt int64                  `json:"createdAt"`
		Name      string                 `json:"name"`
		Data      map[string]interface{} `json:"data,omitempty"`
	}
	mapped := make([]Log, len(logs))
	for i, log := range logs {
		mapped[i] = Log{Id: log.Id, CreatedAt: log.CreatedAt.Unix(), Name: log.Name, Data: log.Data}
	}
	return ctx.JSON(mapped)
}
