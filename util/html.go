package util

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "tr": true,
}

// HtmlToText flattens a post body into plain terminal text. Block elements
// become line breaks, list items get a bullet, script and style contents are
// dropped and control characters (including escape sequences) are removed.
func HtmlToText(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidyLines(b.String())

		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					skip++
				}
			case tag == "br":
				b.WriteString("\n")
			case tag == "li":
				b.WriteString("\n• ")
			case blockTags[tag]:
				b.WriteString("\n")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			} else if blockTags[tag] {
				b.WriteString("\n")
			}
		}
	}
}

// StripControl removes control characters except newlines. Tabs become spaces.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// SingleLine strips control characters and folds newlines, for titles and names.
func SingleLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(StripControl(s), "\n", " "))
}

func tidyLines(s string) string {
	lines := strings.Split(StripControl(s), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// TextToHtml turns plain editor text into the HTML body the backend stores:
// blank-line separated paragraphs are escaped and wrapped in <p>, single
// newlines become <br>.
func TextToHtml(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(line))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
