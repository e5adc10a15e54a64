package main

import (
	"fmt"
	"strings"

	"postly/internal/client"
)

func (a *app) printPosts(posts []client.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts yet.")
		return
	}
	for i, post := range posts {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		a.printPost(post)
	}
}

func (a *app) printPost(post client.Post) {
	author := "unknown"
	if post.Owner != nil {
		author = strings.TrimSpace(post.Owner.FirstName + " " + post.Owner.LastName)
	}
	fmt.Fprintf(a.out, "%s  %s  %s\n", post.ID, author, post.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(a.out, "  %s\n", renderText(post.Text))
	if post.BlobURL != nil {
		fmt.Fprintf(a.out, "  media: %s\n", *post.BlobURL)
	}
}

// renderText brackets hashtags so they stand out in plain output.
func renderText(text string) string {
	var b strings.Builder
	for _, seg := range client.SplitHashtags(text) {
		if seg.Hashtag {
			b.WriteString("[" + seg.Text + "]")
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
