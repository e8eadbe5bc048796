package rest

import (
	"context"
	"io/ioutil"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
	"github.com/inkpot/inkpot/mock"
	"github.com/stretchr/testify/assert"
)

func TestActivityController(t *testing.T) {
	store := &mock.ActivityStore{
		ByUserIdFn: func(ctx context.Context, userId inkpot.UserId) ([]inkpot.ActivityLog, error) {
			return []inkpot.ActivityLog{
				{
					Id:        3,
					CreatedAt: time.Date(2022, 1, 1, 16, 5, 0, 0, time.UTC),
					UserId:    2,
					Name:      "post_created",
					Data: map[string]interface{}{
						"post_id": 7,
						"title":   "Hello",
					},
				},
				{
					Id:        2,
					CreatedAt: time.Date(2022, 1, 1, 16, 0, 0, 0, time.UTC),
					UserId:    2,
					Name:      "session_created",
					Data: map[string]interface{}{
						"ip": "127.0.0.1",
					},
				},
				{
					Id:        1,
					CreatedAt: time.Date(2022, 1, 1, 15, 0, 0, 0, time.UTC),
					UserId:    2,
					Name:      "registered",
				},
			}, nil
		},
	}

	app := fiber.New(Config())
	app.Use(func(ctx *fiber.Ctx) error {
		ctx.Locals(userLocalsKey, &inkpot.User{Id: 2})
		return ctx.Next()
	})
	controller := ActivityController{
		Store: store,
	}
	controller.InstallTo(app)

	req := httptest.NewRequest("GET", "/activities/", nil)
	resp, err := app.Test(req)
	if !assert.NoError(t, err) {
		return
	}
	body, err := ioutil.ReadAll(resp.Body)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, `[{"id":3,"createdAt":1641053100,"name":"post_created","data":{"post_id":7,"title":"Hello"}},`+
		`{"id":2,"createdAt":1641052800,"name":"session_created","data":{"ip":"127.0.0.1"}},`+
		`{"id":1,"createdAt":1641049200,"name":"registered"}]`,
		string(body))
}

func TestActivityControllerRequiresLogin(t *testing.T) {
	app := fiber.New(Config())
	(&ActivityController{Store: mock.ActivityStore{}}).InstallTo(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/activities/", nil))
	if assert.NoError(t, err) {
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	}
}
