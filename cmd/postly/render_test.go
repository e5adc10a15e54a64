package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"postly/internal/client"
)

func TestRenderText(t *testing.T) {
	if got := renderText("hello #world, #go_1!"); got != "hello [#world], [#go_1]!" {
		t.Errorf("renderText = %q", got)
	}
	if got := renderText("no tags"); got != "no tags" {
		t.Errorf("renderText = %q", got)
	}
}

func TestPrintPosts(t *testing.T) {
	var out bytes.Buffer
	a := &app{out: &out}

	a.printPosts(nil)
	if out.String() != "No posts yet.\n" {
		t.Errorf("empty feed = %q", out.String())
	}

	out.Reset()
	media := "http://localhost:8001/posts/media/abc.png"
	a.printPosts([]client.Post{{
		ID:        "p1",
		Text:      "hello #world",
		BlobURL:   &media,
		CreatedAt: time.Now(),
		Owner:     &client.User{FirstName: "Ada", LastName: "Lovelace"},
	}})
	for _, want := range []string{"p1  Ada Lovelace", "hello [#world]", "media: " + media} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q missing %q", out.String(), want)
		}
	}
}
