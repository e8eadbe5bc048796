package rest

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/inkpot/inkpot"
)

const MediaUrl = "/media/"

func mediaUrl(name string) string {
	return MediaUrl + name
}

type PostController struct {
	Posts      inkpot.PostStore
	Users      inkpot.UserStore
	Activities inkpot.ActivityStore
}

func (c *PostController) InstallTo(app fiber.Router) {
	app.Get("/", c.serveList)
	app.Get("/user/:username", c.serveUserList)
	// registered before "/post/:id/" which would capture "new"
	app.Get("/post/new/", RequireLogin, c.serveCreateForm)
	app.Post("/post/new/", RequireLogin, c.serveCreate)
	app.Get("/post/:id/", c.serveDetail)
	app.Get("/post/:id/update/", RequireLogin, c.serveUpdateForm)
	app.Post("/post/:id/update/", RequireLogin, c.serveUpdate)
	app.Get("/post/:id/delete/", RequireLogin, c.serveDeleteConfirm)
	app.Post("/post/:id/delete/", RequireLogin, c.serveDelete)
	app.Get("/about/", serveAbout)
}

type authorResponse struct {
	Id       int64  `json:"id"`
	Username string `json:"username"`
	Image    string `json:"image"`
}

type postResponse struct {
	Id        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	CreatedAt int64          `json:"createdAt"`
	Author    authorResponse `json:"author"`
}

func newPostResponse(post inkpot.Post) postResponse {
	return postResponse{
		Id:        int64(post.Id),
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: post.CreatedAt.Unix(),
		Author: authorResponse{
			Id:       int64(post.Author.Id),
			Username: post.Author.Username,
			Image:    mediaUrl(post.Author.Profile.Image),
		},
	}
}

type pageResponse struct {
	Number      int  `json:"number"`
	NumPages    int  `json:"numPages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

type listResponse struct {
	Author *authorResponse `json:"author,omitempty"`
	Posts  []postResponse  `json:"posts"`
	Page   pageResponse    `json:"page"`
}

type listFunc func(page int) ([]inkpot.Post, inkpot.Page, error)

// listPage resolves ?page=N (default 1, "last" allowed) against list.
func listPage(ctx *fiber.Ctx, list listFunc) (listResponse, error) {
	number := 1
	raw := ctx.Query("page")
	switch raw {
	case "":
	case "last":
		_, page, err := list(1)
		if err != nil {
			return listResponse{}, fmt.Errorf("list first page: %w", err)
		}
		number = page.NumPages
	default:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return listResponse{}, fiber.NewError(fiber.StatusNotFound, "invalid page")
		}
		number = n
	}

	posts, page, err := list(number)
	if err != nil {
		if errors.Is(err, inkpot.ErrPageNotFound) {
			return listResponse{}, fiber.NewError(fiber.StatusNotFound, "invalid page")
		}
		return listResponse{}, fmt.Errorf("list posts: %w", err)
	}

	resp := listResponse{
		Posts: make([]postResponse, len(posts)),
		Page: pageResponse{
			Number:      page.Number,
			NumPages:    page.NumPages,
			Total:       page.Total,
			HasNext:     page.HasNext(),
			HasPrevious: page.HasPrevious(),
		},
	}
	for i, post := range posts {
		resp.Posts[i] = newPostResponse(post)
	}
	return resp, nil
}

func (c *PostController) serveList(ctx *fiber.Ctx) error {
	resp, err := listPage(ctx, func(page int) ([]inkpot.Post, inkpot.Page, error) {
		return c.Posts.List(ctx.Context(), page)
	})
	if err != nil {
		return err
	}
	return ctx.JSON(resp)
}

func (c *PostController) serveUserList(ctx *fiber.Ctx) error {
	author, err := c.Users.ByUsername(ctx.Context(), ctx.Params("username"))
	if err != nil {
		if errors.Is(err, inkpot.ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return fmt.Errorf("get user by username: %w", err)
	}

	resp, err := listPage(ctx, func(page int) ([]inkpot.Post, inkpot.Page, error) {
		return c.Posts.ListByAuthor(ctx.Context(), author.Id, page)
	})
	if err != nil {
		return err
	}
	resp.Author = &authorResponse{
		Id:       int64(author.Id),
		Username: author.Username,
		Image:    mediaUrl(author.Profile.Image),
	}
	return ctx.JSON(resp)
}

func (c *PostController) postParam(ctx *fiber.Ctx) (inkpot.Post, error) {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return inkpot.Post{}, fiber.NewError(fiber.StatusNotFound, "post not found")
	}
	post, err := c.Posts.ById(ctx.Context(), inkpot.PostId(id))
	if err != nil {
		if errors.Is(err, inkpot.ErrPostNotFound) {
			return inkpot.Post{}, fiber.NewError(fiber.StatusNotFound, "post not found")
		}
		return inkpot.Post{}, fmt.Errorf("get post by id: %w", err)
	}
	return post, nil
}

// modifiablePost loads the post and checks the current user authored it.
// Anonymous requests never get here, RequireLogin redirects them first.
func (c *PostController) modifiablePost(ctx *fiber.Ctx) (inkpot.Post, *inkpot.User, error) {
	post, err := c.postParam(ctx)
	if err != nil {
		return inkpot.Post{}, nil, err
	}
	user := currentUser(ctx)
	switch inkpot.AuthorAccess(user, post.AuthorId) {
	case inkpot.AccessAllowed:
		return post, user, nil
	case inkpot.AccessAnonymous:
		return inkpot.Post{}, nil, fiber.ErrUnauthorized
	default:
		requestLog(ctx).
			WithField("post_id", post.Id).
			Infoln("Refused modification of foreign post.")
		return inkpot.Post{}, nil, fiber.ErrForbidden
	}
}

func (c *PostController) serveDetail(ctx *fiber.Ctx) error {
	post, err := c.postParam(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(struct {
		postResponse
		CanModify bool `json:"canModify"`
	}{
		postResponse: newPostResponse(post),
		CanModify:    inkpot.CanModify(currentUser(ctx), post.AuthorId),
	})
}

func (c *PostController) serveCreateForm(ctx *fiber.Ctx) error {
	return ctx.JSON(formResponse{Form: "post", Fields: []string{"title", "content"}})
}

func (c *PostController) serveCreate(ctx *fiber.Ctx) error {
	var form postForm
	if err := parseForm(ctx, &form); err != nil {
		return err
	}
	user := currentUser(ctx)
	post, err := c.Posts.Create(ctx.Context(), inkpot.Post{
		Title:    form.Title,
		Content:  form.Content,
		AuthorId: user.Id,
	})
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	if err := c.logActivity(ctx, user.Id, inkpot.ActivityPostCreated, post); err != nil {
		return err
	}
	return ctx.Redirect(fmt.Sprintf("/post/%d/", post.Id))
}

func (c *PostController) serveUpdateForm(ctx *fiber.Ctx) error {
	post, _, err := c.modifiablePost(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(formResponse{
		Form:   "post",
		Fields: []string{"title", "content"},
		Values: map[string]string{"title": post.Title, "content": post.Content},
	})
}

func (c *PostController) serveUpdate(ctx *fiber.Ctx) error {
	post, user, err := c.modifiablePost(ctx)
	if err != nil {
		return err
	}
	var form postForm
	if err := parseForm(ctx, &form); err != nil {
		return err
	}

	post.Title = form.Title
	post.Content = form.Content
	// authorship never changes, access was granted to the author only
	post.AuthorId = user.Id
	if err := c.Posts.Update(ctx.Context(), post); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if err := c.logActivity(ctx, user.Id, inkpot.ActivityPostUpdated, post); err != nil {
		return err
	}
	return ctx.Redirect(fmt.Sprintf("/post/%d/", post.Id))
}

func (c *PostController) serveDeleteConfirm(ctx *fiber.Ctx) error {
	post, _, err := c.modifiablePost(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(newPostResponse(post))
}

func (c *PostController) serveDelete(ctx *fiber.Ctx) error {
	post, user, err := c.modifiablePost(ctx)
	if err != nil {
		return err
	}
	if err := c.Posts.Delete(ctx.Context(), post.Id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := c.logActivity(ctx, user.Id, inkpot.ActivityPostDeleted, post); err != nil {
		return err
	}
	return ctx.Redirect("/")
}

func (c *PostController) logActivity(ctx *fiber.Ctx, userId inkpot.UserId, name string, post inkpot.Post) error {
	err := c.Activities.AddLog(ctx.Context(), userId, inkpot.Activity{Name: name, Data: map[string]interface{}{
		"post_id": int64(post.Id),
		"title":   post.Title,
	}})
	if err != nil {
		return fmt.Errorf("add %s activity log: %w", name, err)
	}
	return nil
}

func serveAbout(ctx *fiber.Ctx) error {
	return ctx.JSON(map[string]string{
		"title":   "About",
		"content": "A small personal blog. Registered users write posts, everyone reads them.",
	})
}
