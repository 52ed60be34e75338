package tui

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// plainText extracts the readable text of an assistant reply. Replies are
// HTML documents; anything that fails to tokenize is shown as-is.
func plainText(doc string) string {
	if !strings.Contains(doc, "<") {
		return strings.TrimSpace(doc)
	}

	var (
		b       strings.Builder
		skip    int
		inList  bool
		ordinal int
	)

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidy(b.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "head", "style", "script", "title":
				if tt == html.StartTagToken {
					skip++
				}
			case "ol":
				inList = true
				ordinal = 0
			case "li":
				ordinal++
				b.WriteString("\n")
				if inList {
					b.WriteString(strconv.Itoa(ordinal) + ". ")
				} else {
					b.WriteString("• ")
				}
			case "p", "br":
				b.WriteString("\n")
			case "code":
				b.WriteString("`")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "head", "style", "script", "title":
				if skip > 0 {
					skip--
				}
			case "ol":
				inList = false
				b.WriteString("\n")
			case "p":
				b.WriteString("\n")
			case "code":
				b.WriteString("`")
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}
			b.WriteString(collapseSpace(string(z.Text())))
		}
	}
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeft(s, " \t\r\n") != s {
		out = " " + out
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		out += " "
	}
	return out
}

// tidy trims each line and collapses runs of blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
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
