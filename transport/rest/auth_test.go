package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
	"github.com/stretchr/testify/assert"
)

func sessionCookie(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	e := newTestEnv(t)

	registration := url.Values{
		"username":  {"alice"},
		"email":     {"alice@example.com"},
		"password1": {"s3cret-pass"},
		"password2": {"other-pass"},
	}
	resp, body := e.do(t, newRequest("POST", "/register/", registration, ""))
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal("The two password fields didn't match.", decodeFormError(t, body).Fields["password2"])
	_, err := e.users.ByUsername(ctx, "alice")
	assert.ErrorIs(err, inkpot.ErrUserNotFound)

	registration.Set("password2", "s3cret-pass")
	resp, _ = e.do(t, newRequest("POST", "/register/", registration, ""))
	if !assert.Equal(fiber.StatusFound, resp.StatusCode) {
		return
	}
	assert.Equal(LoginPath, resp.Header.Get("Location"))

	user, err := e.users.ByUsername(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	assert.Equal(user.Id, user.Profile.UserId)
	assert.Equal(inkpot.DefaultProfileImage, user.Profile.Image)

	resp, body = e.do(t, newRequest("POST", "/register/", registration, ""))
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal("A user with that username already exists.", decodeFormError(t, body).Fields["username"])

	loginTarget := LoginPath + "?next=" + url.QueryEscape("/post/new/")
	resp, body = e.do(t, newRequest("POST", loginTarget,
		url.Values{"username": {"alice"}, "password": {"wrong"}}, ""))
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(decodeFormError(t, body).Fields["__all__"], "correct username and password")
	assert.Empty(sessionCookie(resp))

	resp, _ = e.do(t, newRequest("POST", loginTarget,
		url.Values{"username": {"alice"}, "password": {"s3cret-pass"}}, ""))
	if !assert.Equal(fiber.StatusFound, resp.StatusCode) {
		return
	}
	assert.Equal("/post/new/", resp.Header.Get("Location"))
	token := sessionCookie(resp)
	if !assert.NotEmpty(token) {
		return
	}

	resp, body = e.do(t, newRequest("GET", "/profile/", nil, token))
	if assert.Equal(fiber.StatusOK, resp.StatusCode) {
		var profile profileResponse
		if assert.NoError(json.Unmarshal([]byte(body), &profile)) {
			assert.Equal(profileResponse{
				Username: "alice",
				Email:    "alice@example.com",
				Image:    "/media/default.png",
			}, profile)
		}
	}

	resp, _ = e.do(t, newRequest("POST", "/logout/", nil, token))
	assert.Equal(fiber.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, newRequest("GET", "/profile/", nil, token))
	assert.Equal(fiber.StatusFound, resp.StatusCode)
	assert.Equal(LoginPath+"?next="+url.QueryEscape("/profile/"), resp.Header.Get("Location"))
}

func TestBearerTokenAuthenticates(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice")

	req := httptest.NewRequest("GET", "/profile/", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, _ := e.do(t, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func multipartProfile(t *testing.T, fields map[string]string, image []byte) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "avatar.png")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/profile/", &body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	return req
}

func encodePng(t *testing.T, width, height int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestProfileUpdateResizesUpload(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	e := newTestEnv(t)
	alice, token := e.login(t, "alice")

	req := multipartProfile(t, map[string]string{"username": "alicia", "email": "alicia@example.com"},
		encodePng(t, 900, 450))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	resp, _ := e.do(t, req)
	if !assert.Equal(fiber.StatusFound, resp.StatusCode) {
		return
	}
	assert.Equal("/profile/", resp.Header.Get("Location"))

	stored, err := e.users.ById(ctx, alice.Id)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("alicia", stored.Username)
	assert.True(strings.HasPrefix(stored.Profile.Image, inkpot.ProfilePicsNamespace+"/"))

	img, err := imaging.Open(e.media.Path(stored.Profile.Image))
	if assert.NoError(err) {
		assert.Equal(300, img.Bounds().Dx())
		assert.Equal(150, img.Bounds().Dy())
	}
}

func TestProfileUpdateRejectsInvalidUpload(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	e := newTestEnv(t)
	alice, token := e.login(t, "alice")
	_, _ = e.login(t, "bob")

	req := multipartProfile(t, map[string]string{"username": "alice", "email": "alice@example.com"},
		[]byte("GIF89a but not really"))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	resp, body := e.do(t, req)
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(decodeFormError(t, body).Fields["image"], "Upload a valid image.")

	resp, body = e.do(t, newRequest("POST", "/profile/",
		url.Values{"username": {"bob"}, "email": {"alice@example.com"}}, token))
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal("A user with that username already exists.", decodeFormError(t, body).Fields["username"])

	resp, body = e.do(t, newRequest("POST", "/profile/",
		url.Values{"username": {"alice"}, "email": {"not-an-email"}}, token))
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal("Enter a valid email address.", decodeFormError(t, body).Fields["email"])

	stored, err := e.users.ById(ctx, alice.Id)
	if assert.NoError(err) {
		assert.Equal("alice", stored.Username)
		assert.Equal(inkpot.Email("alice@example.com"), stored.Email)
		assert.Equal(inkpot.DefaultProfileImage, stored.Profile.Image)
	}
}
