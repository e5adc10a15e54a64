package client

import "regexp"

var hashtagPattern = regexp.MustCompile(`#[A-Za-z0-9_]+`)

// Segment is a run of post text; Hashtag marks a #tag token.
type Segment struct {
	Text    string
	Hashtag bool
}

// SplitHashtags cuts text into plain and hashtag segments. Joining the
// segments' Text yields the input.
func SplitHashtags(text string) []Segment {
	var segments []Segment
	last := 0
	for _, loc := range hashtagPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segments = append(segments, Segment{Text: text[last:loc[0]]})
		}
		segments = append(segments, Segment{Text: text[loc[0]:loc[1]], Hashtag: true})
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}
	return segments
}

// Hashtags lists the #tags in text in order of appearance.
func Hashtags(text string) []string {
	return hashtagPattern.FindAllString(text, -1)
}
