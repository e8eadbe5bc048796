package rest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
)

const (
	SessionCookie = "sessionid"
	LoginPath     = "/login/"

	sessionLocalsKey = "session"
	userLocalsKey    = "user"
)

func currentUser(ctx *fiber.Ctx) *inkpot.User {
	user, _ := ctx.Locals(userLocalsKey).(*inkpot.User)
	return user
}

func currentSession(ctx *fiber.Ctx) (inkpot.Session, bool) {
	session, ok := ctx.Locals(sessionLocalsKey).(inkpot.Session)
	return session, ok
}

// Authenticator ties requests to identities through the session cookie
// or a bearer token.
type Authenticator struct {
	Sessions     inkpot.SessionStore
	Users        inkpot.UserStore
	CookieSecure bool
}

func requestToken(ctx *fiber.Ctx) string {
	if token := ctx.Cookies(SessionCookie); token != "" {
		return token
	}
	auth := ctx.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// CurrentUser loads the identity of a valid session into the request.
// Requests without one continue anonymously.
func (a *Authenticator) CurrentUser() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := requestToken(ctx)
		if token == "" {
			return ctx.Next()
		}

		session, err := a.Sessions.AcquireAndRefresh(ctx.Context(), token, ctx.IP(),
			string(ctx.Request().Header.UserAgent()))
		if err != nil {
			if errors.Is(err, inkpot.ErrSessionNotFound) {
				ctx.ClearCookie(SessionCookie)
				return ctx.Next()
			}
			return fmt.Errorf("acquire and refresh session: %w", err)
		}
		user, err := a.Users.ById(ctx.Context(), session.UserId)
		if err != nil {
			if errors.Is(err, inkpot.ErrUserNotFound) {
				if err := a.Sessions.InvalidateByAuthToken(token); err != nil {
					return fmt.Errorf("invalidate orphaned session: %w", err)
				}
				ctx.ClearCookie(SessionCookie)
				return ctx.Next()
			}
			return fmt.Errorf("retrieve user by id: %w", err)
		}

		ctx.Locals(sessionLocalsKey, session)
		ctx.Locals(userLocalsKey, &user)
		requestLog(ctx).Debugln("Authorized access.")
		return ctx.Next()
	}
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin(ctx *fiber.Ctx) error {
	if currentUser(ctx) == nil {
		return ctx.Redirect(LoginPath + "?next=" + url.QueryEscape(ctx.OriginalURL()))
	}
	return ctx.Next()
}

func (a *Authenticator) startSession(ctx *fiber.Ctx, user inkpot.User) (inkpot.Session, error) {
	session, err := a.Sessions.RegisterNew(ctx.Context(), user.Id, ctx.IP(),
		string(ctx.Request().Header.UserAgent()))
	if err != nil {
		return inkpot.Session{}, fmt.Errorf("session register new: %w", err)
	}
	ctx.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		Secure:   a.CookieSecure,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return session, nil
}

type SessionController struct {
	Store inkpot.SessionStore
}

func (c *SessionController) InstallTo(app fiber.Router) {
	app.Get("/sessions/", RequireLogin, c.serveSessions)
	app.Post("/sessions/other/delete/", RequireLogin, c.serveDeleteOtherSessions)
}

func (c *SessionController) serveSessions(ctx *fiber.Ctx) error {
	current, _ := currentSession(ctx)
	activeSessions, err := c.Store.ActiveSessions(currentUser(ctx).Id)
	if err != nil {
		return fmt.Errorf("active sessions: %w", err)
	}

	// information about a session without access to its token
	type SessionMeta struct {
		Id             string `json:"id"`
		Ip             string `json:"ip"`
		UserAgent      string `json:"userAgent"`
		LastAccessedAt int64  `json:"lastAccessedAt"`
		Current        bool   `json:"current"`
	}
	publicInfos := make([]SessionMeta, len(activeSessions))
	for i, session := range activeSessions {
		publicInfos[i] = SessionMeta{
			Id:             session.Id,
			Ip:             session.Ip,
			UserAgent:      session.UserAgent,
			LastAccessedAt: session.LastAccessedAt.Unix(),
			Current:        session.Id == current.Id,
		}
	}
	return ctx.JSON(publicInfos)
}

func (c *SessionController) serveDeleteOtherSessions(ctx *fiber.Ctx) error {
	session, ok := currentSession(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}
	if err := c.Store.InvalidateAllExcept(session.Token); err != nil {
		return fmt.Errorf("invalidate other sessions: %w", err)
	}
	return ctx.Redirect("/sessions/")
}
