package speech

import (
	"regexp"
	"strings"
)

var (
	fenceBlock  = regexp.MustCompile("(?s)```.*?```")
	fenceLine   = regexp.MustCompile("```.*")
	inlineCode  = regexp.MustCompile("`([^`]*)`")
	boldMarks   = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	italicMarks = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
	headingMark = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	linkSyntax  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// SpeakableText strips structural markup from assistant text before speech
// synthesis: the channel is audio-only and fences, emphasis markers, heading
// markers and link URLs are meaningless spoken aloud.
//
// Fenced code blocks are dropped entirely (reading source code aloud is
// noise); inline code, emphasis and links keep their inner text.
func SpeakableText(text string) string {
	out := fenceBlock.ReplaceAllString(text, "")
	// An unterminated fence at the end of the reply is still dropped.
	out = fenceLine.ReplaceAllString(out, "")
	out = inlineCode.ReplaceAllString(out, "$1")
	out = boldMarks.ReplaceAllString(out, "$1$2")
	out = italicMarks.ReplaceAllString(out, "$1$2")
	out = headingMark.ReplaceAllString(out, "")
	out = linkSyntax.ReplaceAllString(out, "$1")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
