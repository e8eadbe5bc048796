package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
	"github.com/inkpot/inkpot/mock"
	"github.com/stretchr/testify/assert"
)

func TestSessionEndpoints(t *testing.T) {
	assert := assert.New(t)
	e := newTestEnv(t)

	alice, token := e.login(t, "alice")
	other, err := e.sessions.RegisterNew(context.Background(), alice.Id, "10.1.1.1", "Firefox")
	if !assert.NoError(err) {
		return
	}
	bob, bobToken := e.login(t, "bob")

	resp, body := e.do(t, newRequest("GET", "/sessions/", nil, token))
	if !assert.Equal(fiber.StatusOK, resp.StatusCode) {
		return
	}
	var sessions []struct {
		Id      string `json:"id"`
		Current bool   `json:"current"`
	}
	if assert.NoError(json.Unmarshal([]byte(body), &sessions)) {
		assert.Len(sessions, 2)
		assert.NotContains(body, token)
	}

	resp, _ = e.do(t, newRequest("POST", "/sessions/other/delete/", nil, token))
	assert.Equal(fiber.StatusFound, resp.StatusCode)

	assert.Equal([]string{token}, sessionTokens(t, e.sessions, alice.Id))
	assert.NotContains(sessionTokens(t, e.sessions, alice.Id), other.Token)
	assert.Equal([]string{bobToken}, sessionTokens(t, e.sessions, bob.Id))
}

func sessionTokens(t *testing.T, store inkpot.SessionStore, userId inkpot.UserId) []string {
	sessions, err := store.ActiveSessions(userId)
	if err != nil {
		t.Fatal(err)
	}
	tokens := make([]string, 0, len(sessions))
	for _, s := range sessions {
		tokens = append(tokens, s.Token)
	}
	return tokens
}

func TestUnknownSessionIsAnonymous(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, newRequest("GET", "/sessions/", nil, "bogus"))
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func authenticatorApp(sessions mock.SessionStore, users mock.UserStore) *fiber.App {
	auth := &Authenticator{Sessions: sessions, Users: users}
	app := fiber.New(Config())
	app.Use(auth.CurrentUser())
	app.Get("/whoami", func(ctx *fiber.Ctx) error {
		if user := currentUser(ctx); user != nil {
			return ctx.SendString(user.Username)
		}
		return ctx.SendString("anonymous")
	})
	return app
}

func TestCurrentUser(t *testing.T) {
	session := inkpot.Session{Id: "s1", UserId: 5, Token: "tok"}
	refresh := func(ctx context.Context, token string, ip string, userAgent string) (inkpot.Session, error) {
		if token != "tok" {
			return inkpot.Session{}, inkpot.ErrSessionNotFound
		}
		return session, nil
	}
	var invalidated []string
	sessions := mock.SessionStore{
		AcquireAndRefreshFn: refresh,
		InvalidateByAuthTokenFn: func(authToken string) error {
			invalidated = append(invalidated, authToken)
			return nil
		},
	}

	cases := []struct {
		name       string
		token      string
		byId       func(ctx context.Context, userId inkpot.UserId) (inkpot.User, error)
		statusCode int
		body       string
	}{
		{
			name:  "valid session",
			token: "tok",
			byId: func(ctx context.Context, userId inkpot.UserId) (inkpot.User, error) {
				return inkpot.User{Id: userId, Username: "alice"}, nil
			},
			statusCode: fiber.StatusOK,
			body:       "alice",
		},
		{
			name:       "no token",
			statusCode: fiber.StatusOK,
			body:       "anonymous",
		},
		{
			name:       "unknown token",
			token:      "expired",
			statusCode: fiber.StatusOK,
			body:       "anonymous",
		},
		{
			name:  "deleted user",
			token: "tok",
			byId: func(ctx context.Context, userId inkpot.UserId) (inkpot.User, error) {
				return inkpot.User{}, inkpot.ErrUserNotFound
			},
			statusCode: fiber.StatusOK,
			body:       "anonymous",
		},
		{
			name:  "store failure",
			token: "tok",
			byId: func(ctx context.Context, userId inkpot.UserId) (inkpot.User, error) {
				return inkpot.User{}, errors.New("db down")
			},
			statusCode: fiber.StatusInternalServerError,
			body:       JsonErrorMessageResponse(fmt.Sprint(fiber.ErrInternalServerError.Message)),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			invalidated = nil
			app := authenticatorApp(sessions, mock.UserStore{ByIdFn: c.byId})

			req := httptest.NewRequest("GET", "/whoami", nil)
			if c.token != "" {
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
			}
			resp, err := app.Test(req)
			if !assert.NoError(t, err) {
				return
			}
			body, err := ioutil.ReadAll(resp.Body)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, c.statusCode, resp.StatusCode)
			assert.Equal(t, c.body, string(body))
			if c.name == "deleted user" {
				assert.Equal(t, []string{"tok"}, invalidated)
			}
		})
	}
}
