package rest

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
	"github.com/inkpot/inkpot/account"
)

type AuthController struct {
	Accounts *account.Service
	Auth     *Authenticator
}

func (c *AuthController) InstallTo(app fiber.Router) {
	app.Get("/register/", c.serveRegisterForm)
	app.Post("/register/", c.serveRegister)
	app.Get(LoginPath, c.serveLoginForm)
	app.Post(LoginPath, c.serveLogin)
	app.Post("/logout/", c.serveLogout)
	app.Get("/profile/", RequireLogin, c.serveProfile)
	app.Post("/profile/", RequireLogin, c.serveUpdateProfile)
}

type formResponse struct {
	Form   string            `json:"form"`
	Fields []string          `json:"fields"`
	Values map[string]string `json:"values,omitempty"`
}

func (c *AuthController) serveRegisterForm(ctx *fiber.Ctx) error {
	return ctx.JSON(formResponse{Form: "register", Fields: []string{"username", "email", "password1", "password2"}})
}

func (c *AuthController) serveRegister(ctx *fiber.Ctx) error {
	var form registerForm
	if err := parseForm(ctx, &form); err != nil {
		return err
	}

	user, err := c.Accounts.Register(ctx.Context(), account.Registration{
		Username: form.Username,
		Email:    inkpot.Email(form.Email),
		Password: form.Password1,
	})
	if err != nil {
		if errors.Is(err, inkpot.ErrUsernameTaken) {
			return fieldError("username", "A user with that username already exists.")
		}
		return fmt.Errorf("register: %w", err)
	}
	requestLog(ctx).WithField("new_user_id", user.Id).Infoln("Account created.")
	return ctx.Redirect(LoginPath)
}

func (c *AuthController) serveLoginForm(ctx *fiber.Ctx) error {
	return ctx.JSON(formResponse{
		Form:   "login",
		Fields: []string{"username", "password"},
		Values: map[string]string{"next": ctx.Query("next")},
	})
}

// safeRedirect only follows local paths.
func safeRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (c *AuthController) serveLogin(ctx *fiber.Ctx) error {
	var form loginForm
	if err := parseForm(ctx, &form); err != nil {
		return err
	}
	user, err := c.Accounts.Authenticate(ctx.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, inkpot.ErrInvalidCredentials) {
			return fieldError("__all__",
				"Please enter a correct username and password. Note that both fields may be case-sensitive.")
		}
		return fmt.Errorf("authenticate: %w", err)
	}
	if _, err := c.Auth.startSession(ctx, user); err != nil {
		return err
	}

	next := ctx.Query("next")
	if next == "" {
		next = ctx.FormValue("next")
	}
	return ctx.Redirect(safeRedirect(next))
}

func (c *AuthController) serveLogout(ctx *fiber.Ctx) error {
	if session, ok := currentSession(ctx); ok {
		err := c.Auth.Sessions.InvalidateByAuthToken(session.Token)
		if err != nil && !errors.Is(err, inkpot.ErrSessionNotFound) {
			return fmt.Errorf("invalidate session: %w", err)
		}
	}
	ctx.ClearCookie(SessionCookie)
	return ctx.JSON(map[string]string{"message": "You have been logged out."})
}

type profileResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Image    string `json:"image"`
}

func newProfileResponse(user inkpot.User) profileResponse {
	return profileResponse{
		Username: user.Username,
		Email:    string(user.Email),
		Image:    mediaUrl(user.Profile.Image),
	}
}

func (c *AuthController) serveProfile(ctx *fiber.Ctx) error {
	return ctx.JSON(newProfileResponse(*currentUser(ctx)))
}

func uploadedImage(ctx *fiber.Ctx) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(ctx.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}
	files := form.File["image"]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, nil
	}
	return files[0], nil
}

func (c *AuthController) serveUpdateProfile(ctx *fiber.Ctx) error {
	var form accountForm
	if err := parseForm(ctx, &form); err != nil {
		return err
	}
	header, err := uploadedImage(ctx)
	if err != nil {
		return err
	}

	update := account.AccountUpdate{Username: form.Username, Email: inkpot.Email(form.Email)}
	if header != nil {
		file, err := header.Open()
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer file.Close()
		update.Image = file
	}

	_, err = c.Accounts.UpdateAccount(ctx.Context(), *currentUser(ctx), update)
	switch {
	case errors.Is(err, inkpot.ErrUsernameTaken):
		return fieldError("username", "A user with that username already exists.")
	case errors.Is(err, inkpot.ErrInvalidImage):
		return fieldError("image",
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	case err != nil:
		return fmt.Errorf("update account: %w", err)
	}
	requestLog(ctx).Infoln("Account updated.")
	return ctx.Redirect("/profile/")
}
