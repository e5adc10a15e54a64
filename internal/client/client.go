package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL  = "http://localhost:8001"
	MediaPathPrefix = "/posts/media/"
	MaxPostLength   = 500
)

// ErrEmptyPost and ErrPostTooLong are reported before any request is sent.
var (
	ErrEmptyPost   = errors.New("post text cannot be empty")
	ErrPostTooLong = fmt.Errorf("post text cannot exceed %d characters", MaxPostLength)
)

var errNoMediaRef = errors.New("upload response carried no media reference")

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenStore
	Logger     *logrus.Logger
	// OnUnauthorized runs after any 401 response, once the stored token
	// has been removed. Hosts use it to send the user back to login.
	OnUnauthorized func()
}

// Client is the single point of HTTP egress to the Postly API. Every
// operation issues at most one request and never retries.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	logger         *logrus.Logger
	onUnauthorized func()
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Tokens == nil {
		opts.Tokens = NewMemoryTokenStore()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           opts.HTTPClient,
		tokens:         opts.Tokens,
		logger:         opts.Logger,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// BaseURL is the API origin media references are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) Response[User] {
	return call[User](ctx, c, http.MethodPost, "/auth/signup", req)
}

func (c *Client) Login(ctx context.Context, email, password string) Response[AuthToken] {
	return call[AuthToken](ctx, c, http.MethodPost, "/auth/signin", loginRequest{Email: email, Password: password})
}

func (c *Client) CurrentUser(ctx context.Context) Response[User] {
	return call[User](ctx, c, http.MethodGet, "/auth/me", nil)
}

func (c *Client) ListPosts(ctx context.Context, skip, limit int) Response[[]Post] {
	path := fmt.Sprintf("/posts?skip=%d&limit=%d", skip, limit)
	return c.resolvePosts(call[[]Post](ctx, c, http.MethodGet, path, nil))
}

func (c *Client) ListUserPosts(ctx context.Context, userID string, skip, limit int) Response[[]Post] {
	path := fmt.Sprintf("/posts/users/%s?skip=%d&limit=%d", url.PathEscape(userID), skip, limit)
	return c.resolvePosts(call[[]Post](ctx, c, http.MethodGet, path, nil))
}

func (c *Client) GetPost(ctx context.Context, postID string) Response[Post] {
	return c.resolvePost(call[Post](ctx, c, http.MethodGet, "/posts/"+url.PathEscape(postID), nil))
}

func (c *Client) CreatePost(ctx context.Context, text string) Response[Post] {
	if err := ValidatePostText(text); err != nil {
		return failure[Post](err.Error())
	}
	return c.resolvePost(call[Post](ctx, c, http.MethodPost, "/posts", postTextRequest{Text: text}))
}

func (c *Client) UpdatePost(ctx context.Context, postID, text string) Response[Post] {
	if err := ValidatePostText(text); err != nil {
		return failure[Post](err.Error())
	}
	return c.resolvePost(call[Post](ctx, c, http.MethodPut, "/posts/"+url.PathEscape(postID), postTextRequest{Text: text}))
}

func (c *Client) DeletePost(ctx context.Context, postID string) Response[Message] {
	return call[Message](ctx, c, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil)
}

// UploadMedia sends content as the multipart "file" field. Type and size
// checks are the caller's job; see ValidateMedia.
func (c *Client) UploadMedia(ctx context.Context, postID, filename string, content io.Reader) Response[Upload] {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(filename))))
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return failure[Upload](err.Error())
	}
	if _, err := io.Copy(part, content); err != nil {
		return failure[Upload](fmt.Sprintf("read %s: %v", filename, err))
	}
	if err := form.Close(); err != nil {
		return failure[Upload](err.Error())
	}

	var payload uploadPayload
	path := "/posts/" + url.PathEscape(postID) + "/upload"
	if msg, ok := c.do(ctx, http.MethodPost, path, &buf, form.FormDataContentType(), &payload); !ok {
		return failure[Upload](msg)
	}

	resolved := c.MediaURL(&payload.BlobURL)
	if resolved == nil {
		return failure[Upload](errNoMediaRef.Error())
	}
	return succeed(Upload{Message: payload.Message, BlobURL: *resolved})
}

// MediaURL resolves a media reference against the API origin.
func (c *Client) MediaURL(ref *string) *string {
	return ResolveMediaURL(c.baseURL, ref)
}

// ResolveMediaURL turns a relative media reference into an absolute URL under
// baseURL + MediaPathPrefix. Nil and empty references resolve to nil;
// references that are already absolute are returned unchanged.
func ResolveMediaURL(baseURL string, ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	if strings.HasPrefix(*ref, "http://") || strings.HasPrefix(*ref, "https://") {
		v := *ref
		return &v
	}
	v := strings.TrimRight(baseURL, "/") + MediaPathPrefix + strings.TrimLeft(*ref, "/")
	return &v
}

// ValidatePostText applies the post length rules: non-blank, at most
// MaxPostLength characters.
func ValidatePostText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyPost
	}
	if utf8.RuneCountInString(text) > MaxPostLength {
		return ErrPostTooLong
	}
	return nil
}

func (c *Client) resolvePost(resp Response[Post]) Response[Post] {
	if resp.Success {
		resp.Data.BlobURL = c.MediaURL(resp.Data.BlobURL)
	}
	return resp
}

func (c *Client) resolvePosts(resp Response[[]Post]) Response[[]Post] {
	if !resp.Success {
		return resp
	}
	if resp.Data == nil {
		resp.Data = []Post{}
	}
	for i := range resp.Data {
		resp.Data[i].BlobURL = c.MediaURL(resp.Data[i].BlobURL)
	}
	return resp
}

func call[T any](ctx context.Context, c *Client, method, path string, payload any) Response[T] {
	var (
		body        io.Reader
		contentType string
	)
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return failure[T](fmt.Sprintf("encode request: %v", err))
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	var out T
	if msg, ok := c.do(ctx, method, path, body, contentType, &out); !ok {
		return failure[T](msg)
	}
	return succeed(out)
}

// do sends one request and decodes a 2xx JSON body into out. On failure it
// returns the message to show the user.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err.Error(), false
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token, ok := c.tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.WithField("method", method).WithField("path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debugf("request failed: %v", err)
		return err.Error(), false
	}
	defer resp.Body.Close()

	logger = logger.WithField("status", resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession()
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Debugf("read body: %v", err)
		return err.Error(), false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("request rejected")
		if detail := serverDetail(raw); detail != "" {
			return detail, false
		}
		return fmt.Sprintf("request failed with status code %d", resp.StatusCode), false
	}

	logger.Debug("request served")
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Sprintf("decode response: %v", err), false
		}
	}
	return "", true
}

func (c *Client) expireSession() {
	if err := c.tokens.Remove(); err != nil {
		c.logger.Warnf("clear token after 401: %v", err)
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// serverDetail extracts a {"detail": "..."} message; non-string details
// (validation error lists) are ignored.
func serverDetail(raw []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if s, ok := payload.Detail.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
