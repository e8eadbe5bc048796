package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
	"github.com/inkpot/inkpot/account"
	"github.com/inkpot/inkpot/inmem"
	"github.com/inkpot/inkpot/media"
	"github.com/inkpot/inkpot/mock"
	"github.com/inkpot/inkpot/persistent"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/buntdb"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	app        *fiber.App
	users      *inmem.UserStore
	posts      *inmem.PostStore
	activities *inmem.ActivityStore
	sessions   *persistent.SessionStore
	accounts   *account.Service
	media      *media.DiskStore
}

func newTestEnv(t *testing.T) *testEnv {
	bunt, err := buntdb.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = bunt.Close() })

	db := inmem.NewDB()
	e := &testEnv{
		users:      inmem.NewUserStore(db),
		posts:      inmem.NewPostStore(db),
		activities: inmem.NewActivityStore(),
	}
	e.sessions, err = persistent.NewSessionStore(bunt, e.activities)
	if err != nil {
		t.Fatal(err)
	}
	e.media, err = media.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e.accounts = &account.Service{
		Users:      e.users,
		Images:     e.media,
		Activities: e.activities,
		HashCost:   bcrypt.MinCost,
	}

	auth := &Authenticator{Sessions: e.sessions, Users: e.users}
	e.app = fiber.New(Config())
	e.app.Use(auth.CurrentUser())
	(&AuthController{Accounts: e.accounts, Auth: auth}).InstallTo(e.app)
	(&PostController{Posts: e.posts, Users: e.users, Activities: e.activities}).InstallTo(e.app)
	(&SessionController{Store: e.sessions}).InstallTo(e.app)
	(&ActivityController{Store: e.activities}).InstallTo(e.app)
	e.app.Use(NotFoundHandler)
	return e
}

// login registers username and opens a session for it.
func (e *testEnv) login(t *testing.T, username string) (inkpot.User, string) {
	ctx := context.Background()
	user, err := e.accounts.Register(ctx, account.Registration{
		Username: username,
		Email:    inkpot.Email(username + "@example.com"),
		Password: "pw-" + username,
	})
	if err != nil {
		t.Fatal(err)
	}
	session, err := e.sessions.RegisterNew(ctx, user.Id, "0.0.0.0", "test")
	if err != nil {
		t.Fatal(err)
	}
	return user, session.Token
}

func newRequest(method string, target string, form url.Values, token string) *http.Request {
	var req *http.Request
	if form == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	return req
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func decodeFormError(t *testing.T, body string) FormErrorResponse {
	var resp FormErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode %q: %s", body, err)
	}
	return resp
}

func TestNotFoundHandler(t *testing.T) {
	assert := assert.New(t)

	app := fiber.New(Config())
	app.Get("/home", func(ctx *fiber.Ctx) error {
		return ctx.SendString(`{"im":"working"}`)
	})
	app.Use(NotFoundHandler)

	cases := []struct {
		path       string
		returnCode int
		returnBody string
	}{
		{path: "/unknown_path", returnCode: fiber.StatusNotFound,
			returnBody: JsonErrorMessageResponse("Not Found")},
		{path: "/home", returnCode: fiber.StatusOK,
			returnBody: `{"im":"working"}`},
	}

	for _, useCase := range cases {
		assertMsg := "status code: " + useCase.path

		req := httptest.NewRequest("GET", useCase.path, nil)
		resp, err := app.Test(req)
		assert.NoError(err, assertMsg)
		defer resp.Body.Close()

		assert.Equal(useCase.returnCode, resp.StatusCode, assertMsg)
		body, err := ioutil.ReadAll(resp.Body)
		assert.NoError(err, assertMsg)
		assert.Equal(useCase.returnBody, string(body), assertMsg)
	}
}

func TestInternalErrorsStayPrivate(t *testing.T) {
	assert := assert.New(t)

	app := fiber.New(Config())
	controller := PostController{Posts: mock.PostStore{
		ListFn: func(ctx context.Context, page int) ([]inkpot.Post, inkpot.Page, error) {
			return nil, inkpot.Page{}, errors.New("connection refused: 10.0.0.7:5432")
		},
	}}
	controller.InstallTo(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if !assert.NoError(err) {
		return
	}
	body, err := ioutil.ReadAll(resp.Body)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse(fmt.Sprint(fiber.ErrInternalServerError.Message)), string(body))
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"":                    "/",
		"/post/new/":          "/post/new/",
		"//evil.example.com":  "/",
		"https://example.com": "/",
		"/\\evil.example.com": "/",
	}
	for next, expected := range cases {
		assert.Equal(t, expected, safeRedirect(next), next)
	}
}
