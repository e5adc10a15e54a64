package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"postly/internal/repository"
	"postly/internal/service"
)

type postTextRequest struct {
	Text string `json:"text"`
}

func (h *Handler) listPosts(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}

	posts, err := h.posts.List(c.Request.Context(), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) listUserPosts(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}

	posts, err := h.posts.ListByUser(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) getPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			detail(c, http.StatusNotFound, "Post not found")
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) createPost(c *gin.Context) {
	var req postTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user := currentUser(c)
	post, err := h.posts.Create(c.Request.Context(), user.ID, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithField("post_id", post.ID).WithField("user_id", user.ID).Info("post created")
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) updatePost(c *gin.Context) {
	var req postTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := h.posts.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) deletePost(c *gin.Context) {
	id := c.Param("id")
	if err := h.posts.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithField("post_id", id).Info("post deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *Handler) uploadMedia(c *gin.Context) {
	// multipart framing on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, service.ErrMediaTooLarge)
			return
		}
		detail(c, http.StatusBadRequest, "A file field is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	key, err := h.posts.UploadMedia(c.Request.Context(), currentUser(c).ID, c.Param("id"), service.MediaUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithField("post_id", c.Param("id")).WithField("key", key).Info("media uploaded")
	c.JSON(http.StatusOK, UploadResponse{Message: "File uploaded successfully", BlobURL: key})
}

func (h *Handler) serveMedia(c *gin.Context) {
	rc, info, err := h.posts.OpenMedia(c.Request.Context(), c.Param("filename"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			detail(c, http.StatusNotFound, "File not found")
			return
		}
		h.fail(c, err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, nil)
}

func pageFromQuery(c *gin.Context) (repository.Page, bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		detail(c, http.StatusBadRequest, "skip must be an integer")
		return repository.Page{}, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageLimit)))
	if err != nil {
		detail(c, http.StatusBadRequest, "limit must be an integer")
		return repository.Page{}, false
	}
	return repository.Page{Skip: skip, Limit: limit}, true
}
