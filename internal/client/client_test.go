package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func strPtr(s string) *string { return &s }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *MemoryTokenStore, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	tokens := NewMemoryTokenStore()
	c := New(Options{BaseURL: srv.URL, Tokens: tokens})
	return c, tokens, &hits
}

func TestResolveMediaURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  *string
		want *string
	}{
		{"relative", "http://localhost:8001", strPtr("abc123.png"), strPtr("http://localhost:8001/posts/media/abc123.png")},
		{"trailing slash base", "http://localhost:8001/", strPtr("abc123.png"), strPtr("http://localhost:8001/posts/media/abc123.png")},
		{"absent", "http://localhost:8001", nil, nil},
		{"empty", "http://localhost:8001", strPtr(""), nil},
		{"already absolute", "http://localhost:8001", strPtr("https://cdn.example/x.png"), strPtr("https://cdn.example/x.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMediaURL(tt.base, tt.ref)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("got %q, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Fatalf("got %v, want %q", got, *tt.want)
			}
		})
	}
}

func TestEnvelopeIsExclusive(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
			return
		}
		switch {
		case r.URL.Path == "/posts" && r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, []map[string]any{})
		case r.Method == http.MethodDelete:
			writeJSON(w, http.StatusOK, map[string]any{"message": "Post deleted successfully"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"id": "1", "text": "hi"})
		}
	})
	ctx := context.Background()

	type result struct {
		success bool
		err     string
		hasData bool
	}
	run := func() map[string]result {
		return map[string]result{
			"list": func() result {
				r := c.ListPosts(ctx, 0, 10)
				return result{r.Success, r.Error, r.Data != nil}
			}(),
			"get": func() result {
				r := c.GetPost(ctx, "1")
				return result{r.Success, r.Error, r.Data.ID != ""}
			}(),
			"create": func() result {
				r := c.CreatePost(ctx, "hi")
				return result{r.Success, r.Error, r.Data.ID != ""}
			}(),
			"delete": func() result {
				r := c.DeletePost(ctx, "1")
				return result{r.Success, r.Error, r.Data.Message != ""}
			}(),
		}
	}

	for name, r := range run() {
		if r.success || r.err != "boom" || r.hasData {
			t.Errorf("%s failure envelope = %+v", name, r)
		}
	}

	fail.Store(false)
	for name, r := range run() {
		if !r.success || r.err != "" || !r.hasData {
			t.Errorf("%s success envelope = %+v", name, r)
		}
	}
}

func TestErrorMessagePriority(t *testing.T) {
	t.Run("server detail", func(t *testing.T) {
		c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Post not found"})
		})
		if got := c.GetPost(context.Background(), "x").Error; got != "Post not found" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("non-string detail falls back to status", func(t *testing.T) {
		c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []any{map[string]any{"msg": "field required"}}})
		})
		if got := c.GetPost(context.Background(), "x").Error; got != "request failed with status code 422" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := New(Options{BaseURL: srv.URL})
		resp := c.ListPosts(context.Background(), 0, 10)
		if resp.Success || resp.Error == "" || resp.Data != nil {
			t.Errorf("transport failure envelope = %+v", resp)
		}
	})
}

func TestBearerTokenAttached(t *testing.T) {
	var seen atomic.Value
	c, tokens, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1"})
	})
	ctx := context.Background()

	c.CurrentUser(ctx)
	if got := seen.Load().(string); got != "" {
		t.Errorf("authorization without token = %q", got)
	}

	_ = tokens.Set("abc")
	c.CurrentUser(ctx)
	if got := seen.Load().(string); got != "Bearer abc" {
		t.Errorf("authorization = %q", got)
	}
}

func TestUnauthorizedClearsTokenAndNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
	}))
	defer srv.Close()

	tokens := NewMemoryTokenStore()
	_ = tokens.Set("stale")
	var notified int32
	c := New(Options{
		BaseURL:        srv.URL,
		Tokens:         tokens,
		OnUnauthorized: func() { atomic.AddInt32(&notified, 1) },
	})

	resp := c.DeletePost(context.Background(), "p1")
	if resp.Success || resp.Error != "Could not validate credentials" {
		t.Fatalf("envelope = %+v", resp)
	}
	if tokens.IsAuthenticated() {
		t.Error("token kept after 401")
	}
	if atomic.LoadInt32(&notified) != 1 {
		t.Errorf("unauthorized callback ran %d times", notified)
	}
}

func TestPostTextValidatedBeforeRequest(t *testing.T) {
	c, _, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body postTextRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"id": "p1", "text": body.Text})
	})
	ctx := context.Background()

	for _, text := range []string{"", "   ", strings.Repeat("a", MaxPostLength+1), strings.Repeat("é", MaxPostLength+1)} {
		resp := c.CreatePost(ctx, text)
		if resp.Success || resp.Error == "" {
			t.Errorf("create %d chars: envelope = %+v", len(text), resp)
		}
		if upd := c.UpdatePost(ctx, "p1", text); upd.Success {
			t.Errorf("update %d chars accepted", len(text))
		}
	}
	if n := atomic.LoadInt32(hits); n != 0 {
		t.Fatalf("invalid text reached the server %d times", n)
	}

	boundary := strings.Repeat("é", MaxPostLength)
	resp := c.CreatePost(ctx, boundary)
	if !resp.Success || resp.Data.Text != boundary {
		t.Fatalf("boundary text rejected: %+v", resp.Error)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("hits = %d, want 1", n)
	}
}

func TestPostOperationsResolveMedia(t *testing.T) {
	post := map[string]any{"id": "p1", "userId": "u1", "text": "hi", "blobUrl": "abc123.png"}
	bare := map[string]any{"id": "p2", "userId": "u1", "text": "plain", "blobUrl": nil}
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && (r.URL.Path == "/posts" || strings.HasPrefix(r.URL.Path, "/posts/users/")):
			writeJSON(w, http.StatusOK, []map[string]any{post, bare})
		default:
			writeJSON(w, http.StatusOK, post)
		}
	})
	ctx := context.Background()
	want := c.BaseURL() + "/posts/media/abc123.png"

	lists := map[string]Response[[]Post]{
		"list":       c.ListPosts(ctx, 0, 10),
		"user posts": c.ListUserPosts(ctx, "u1", 0, 10),
	}
	for name, resp := range lists {
		if !resp.Success || len(resp.Data) != 2 {
			t.Fatalf("%s: %+v", name, resp)
		}
		if got := resp.Data[0].BlobURL; got == nil || *got != want {
			t.Errorf("%s media = %v, want %q", name, got, want)
		}
		if resp.Data[1].BlobURL != nil {
			t.Errorf("%s: post without media got %q", name, *resp.Data[1].BlobURL)
		}
	}

	singles := map[string]Response[Post]{
		"get":    c.GetPost(ctx, "p1"),
		"create": c.CreatePost(ctx, "hi"),
		"update": c.UpdatePost(ctx, "p1", "hi"),
	}
	for name, resp := range singles {
		if got := resp.Data.BlobURL; got == nil || *got != want {
			t.Errorf("%s media = %v, want %q", name, got, want)
		}
	}
}

func TestUploadMediaSendsMultipart(t *testing.T) {
	c, tokens, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/posts/p1/upload" {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "wrong route"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "no token"})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if string(body) != "gif-bytes" || header.Filename != "cat.gif" || header.Header.Get("Content-Type") != "image/gif" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "unexpected part"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "File uploaded successfully", "blob_url": "f00.gif"})
	})
	_ = tokens.Set("tok")

	resp := c.UploadMedia(context.Background(), "p1", "/tmp/cat.gif", strings.NewReader("gif-bytes"))
	if !resp.Success {
		t.Fatalf("upload failed: %s", resp.Error)
	}
	if want := c.BaseURL() + "/posts/media/f00.gif"; resp.Data.BlobURL != want {
		t.Errorf("blob url = %q, want %q", resp.Data.BlobURL, want)
	}
	if resp.Data.Message != "File uploaded successfully" {
		t.Errorf("message = %q", resp.Data.Message)
	}
}

func TestLoginRejectedLeavesNoToken(t *testing.T) {
	c, tokens, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Incorrect email or password"})
	})

	resp := c.Login(context.Background(), "a@b.com", "secret")
	if resp.Success || resp.Error != "Incorrect email or password" || resp.Data.AccessToken != "" {
		t.Fatalf("envelope = %+v", resp)
	}
	if tokens.IsAuthenticated() {
		t.Error("token stored after rejected login")
	}
}

func TestUploadWithoutMediaReferenceFails(t *testing.T) {
	for name, body := range map[string]map[string]any{
		"empty":   {"message": "File uploaded successfully", "blob_url": ""},
		"missing": {"message": "File uploaded successfully"},
	} {
		t.Run(name, func(t *testing.T) {
			c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})
			resp := c.UploadMedia(context.Background(), "p1", "cat.png", strings.NewReader("png"))
			if resp.Success || resp.Data.BlobURL != "" {
				t.Fatalf("envelope = %+v", resp)
			}
			if resp.Error != "upload response carried no media reference" {
				t.Errorf("error = %q", resp.Error)
			}
		})
	}
}
