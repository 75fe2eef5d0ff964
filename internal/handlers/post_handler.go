package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/paginator"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/internal/storage"
	"github.com/anonto42/yatube/internal/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const invalidGroupChoice = "Select a valid choice. That choice is not one of the available choices."

// PostHandler serves the post listings and the post create/edit forms.
type PostHandler struct {
	postRepository  repositories.PostRepository
	groupRepository repositories.GroupRepository
	media           storage.Store
	detail          postDetail
	perPage         int
	maxUploadBytes  int64
	log             *zap.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	groupRepo repositories.GroupRepository,
	commentRepo repositories.CommentRepository,
	media storage.Store,
	perPage int,
	maxUploadBytes int64,
	log *zap.Logger,
) *PostHandler {
	return &PostHandler{
		postRepository:  postRepo,
		groupRepository: groupRepo,
		media:           media,
		detail:          postDetail{posts: postRepo, comments: commentRepo},
		perPage:         perPage,
		maxUploadBytes:  maxUploadBytes,
		log:             log,
	}
}

// RegisterPostRoutes registers the post pages. indexCache wraps the index
// page only.
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, requireLogin, indexCache echo.MiddlewareFunc) {
	g.GET("/", h.Index, indexCache)
	g.GET("/group/:slug/", h.GroupPosts)
	g.GET("/posts/:id/", h.PostDetail)
	g.GET("/create/", h.PostCreate, requireLogin)
	g.POST("/create/", h.PostCreate, requireLogin)
	g.GET("/posts/:id/edit/", h.PostEdit, requireLogin)
	g.POST("/posts/:id/edit/", h.PostEdit, requireLogin)
}

// Index lists every post, newest first.
func (h *PostHandler) Index(c echo.Context) error {
	page, err := postPage(c, h.postRepository, repositories.AllPosts(), h.perPage)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "posts/index.html", echo.Map{"page_obj": page})
}

// GroupPosts lists the posts published into one group.
func (h *PostHandler) GroupPosts(c echo.Context) error {
	group, err := h.groupRepository.GetGroupBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return lookupError(err, "group")
	}
	page, err := postPage(c, h.postRepository, repositories.ByGroup(group.ID), h.perPage)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "posts/group_list.html", echo.Map{
		"group":    group,
		"page_obj": page,
	})
}

func (h *PostHandler) PostDetail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		return lookupError(err, "post")
	}
	return h.detail.render(c, post, newForm())
}

// PostCreate shows the empty form, or publishes a post as the current user
// and redirects to their profile.
func (h *PostHandler) PostCreate(c echo.Context) error {
	user := currentUser(c)
	if c.Request().Method != http.MethodPost {
		return h.renderPostForm(c, newForm(), false, 0)
	}

	post := &models.Post{AuthorID: user.ID}
	form, err := h.bindPost(c, post)
	if err != nil {
		return err
	}
	if !form.Valid() {
		return h.renderPostForm(c, form, false, 0)
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		h.dropImage(c, post.Image)
		return err
	}
	return c.Redirect(http.StatusFound, profileURL(user.Username))
}

// PostEdit lets the author change text, group and image. Anyone else is sent
// back to the post before the form is read.
func (h *PostHandler) PostEdit(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		return lookupError(err, "post")
	}
	if post.AuthorID != currentUser(c).ID {
		return c.Redirect(http.StatusFound, postURL(post.ID))
	}

	if c.Request().Method != http.MethodPost {
		form := newForm()
		form.Values["text"] = post.Text
		if post.GroupID != nil {
			form.Values["group"] = strconv.FormatUint(uint64(*post.GroupID), 10)
		}
		return h.renderPostForm(c, form, true, post.ID)
	}

	oldImage := post.Image
	form, err := h.bindPost(c, post)
	if err != nil {
		return err
	}
	if !form.Valid() {
		return h.renderPostForm(c, form, true, post.ID)
	}
	if err := h.postRepository.UpdatePost(c.Request().Context(), post); err != nil {
		if post.Image != oldImage {
			h.dropImage(c, post.Image)
		}
		return err
	}
	if post.Image != oldImage {
		h.dropImage(c, oldImage)
	}
	return c.Redirect(http.StatusFound, postURL(post.ID))
}

// bindPost validates the submitted form and, when it is valid, copies it onto
// post. The uploaded image is stored only once everything else checks out.
func (h *PostHandler) bindPost(c echo.Context, post *models.Post) (*Form, error) {
	var req models.PostForm
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	req.Text = strings.TrimSpace(req.Text)
	req.Group = strings.TrimSpace(req.Group)

	form := newForm()
	form.Values["text"] = req.Text
	form.Values["group"] = req.Group
	if err := c.Validate(&req); err != nil {
		form.Errors = validators.FieldErrors(err)
	}

	var groupID *uint
	if req.Group != "" && form.Errors["group"] == "" {
		group, err := h.groupChoice(c, req.Group)
		if err != nil {
			return nil, err
		}
		if group == nil {
			form.AddError("group", invalidGroupChoice)
		} else {
			groupID = &group.ID
		}
	}

	file, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		file = nil
	case err != nil:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	if !form.Valid() {
		return form, nil
	}

	if file != nil {
		key, err := h.saveImage(c, file)
		if errors.Is(err, storage.ErrNotImage) || errors.Is(err, storage.ErrTooLarge) {
			form.AddError("image", imageMessage(err))
			return form, nil
		}
		if err != nil {
			return nil, err
		}
		post.Image = key
	}
	post.Text = req.Text
	post.GroupID = groupID
	post.Group = nil
	return form, nil
}

// groupChoice resolves a submitted group id; nil means no such group.
func (h *PostHandler) groupChoice(c echo.Context, raw string) (*models.Group, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, nil
	}
	group, err := h.groupRepository.GetGroupByID(c.Request().Context(), uint(id))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return group, err
}

func (h *PostHandler) saveImage(c echo.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > h.maxUploadBytes {
		return "", storage.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return storage.SaveImage(c.Request().Context(), h.media, f, h.maxUploadBytes)
}

// dropImage removes a stored image no post refers to any more. Failures are
// logged; the object is only orphaned.
func (h *PostHandler) dropImage(c echo.Context, key string) {
	if key == "" {
		return
	}
	err := h.media.Delete(c.Request().Context(), key)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		h.log.Warn("failed to delete post image", zap.String("key", key), zap.Error(err))
	}
}

func imageMessage(err error) string {
	if errors.Is(err, storage.ErrTooLarge) {
		return "The uploaded image is too large."
	}
	return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
}

func (h *PostHandler) renderPostForm(c echo.Context, form *Form, isEdit bool, postID uint) error {
	groups, err := h.groupRepository.GetGroups(c.Request().Context())
	if err != nil {
		return err
	}
	data := echo.Map{"form": form, "groups": groups, "is_edit": isEdit}
	if isEdit {
		data["post_id"] = postID
	}
	return c.Render(http.StatusOK, "posts/create_post.html", data)
}

// postPage loads the page of posts selected by the "page" query parameter.
func postPage(c echo.Context, posts repositories.PostRepository, filter repositories.PostFilter, perPage int) (paginator.Window[models.Post], error) {
	ctx := c.Request().Context()
	total, err := posts.CountPosts(ctx, filter)
	if err != nil {
		return paginator.Window[models.Post]{}, fmt.Errorf("count posts: %w", err)
	}
	page := paginator.New(total, perPage, c.QueryParam("page"))
	items, err := posts.ListPosts(ctx, filter, page.Offset(), page.Limit())
	if err != nil {
		return paginator.Window[models.Post]{}, fmt.Errorf("list posts: %w", err)
	}
	return paginator.Window[models.Post]{Page: page, Items: items}, nil
}

// postDetail renders the post page, shared by the detail view and the
// comment form when it fails validation.
type postDetail struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
}

func (d postDetail) render(c echo.Context, post *models.Post, form *Form) error {
	ctx := c.Request().Context()
	comments, err := d.comments.GetCommentsByPostID(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	postCount, err := d.posts.CountPosts(ctx, repositories.ByAuthor(post.AuthorID))
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	return c.Render(http.StatusOK, "posts/post_detail.html", echo.Map{
		"post":       post,
		"comments":   comments,
		"form":       form,
		"post_count": postCount,
	})
}
