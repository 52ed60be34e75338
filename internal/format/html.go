// Package format turns assistant plain-text answers into the HTML documents
// returned by the welcome and query endpoints.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTitle is used when no document title is configured.
const DefaultTitle = "CloudDefense.AI Assistant"

var (
	listItemPattern = regexp.MustCompile(`^(\d+)\.\s*(.*)`)
	strongPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	emPattern       = regexp.MustCompile(`\*([^*]+)\*`)
	// Backticked spans, or a known CLI verb at a word start running up to a colon or line end.
	commandPattern = regexp.MustCompile("`[^`]+`|(?:^|\\s)(?:aws|git|npm|docker|kubectl)\\s+[^:\\n]+")
)

// Body converts text into paragraphs and ordered lists with inline emphasis
// and <code> spans for CLI commands.
func Body(text string) string {
	var (
		out    []string
		item   []string
		inList bool
	)
	flushLi := func(close bool) {
		if len(item) == 0 {
			return
		}
		joined := strings.Join(item, "")
		if close {
			joined += "</li>"
		}
		out = append(out, joined)
		item = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := listItemPattern.FindStringSubmatch(line); m != nil {
			flushLi(false)
			if !inList {
				out = append(out, "<ol>")
				inList = true
			}
			item = append(item, "<li>"+inline(m[2]))
			continue
		}

		if inList && strings.TrimSpace(line) == "" {
			flushLi(true)
			out = append(out, "</ol>")
			inList = false
			continue
		}

		paragraph := "<p>" + inline(line) + "</p>"
		if inList {
			item = append(item, paragraph)
		} else {
			out = append(out, paragraph)
		}
	}

	flushLi(true)
	if inList {
		out = append(out, "</ol>")
	}

	return strings.Join(out, "\n")
}

// Document wraps Body(text) in a standalone HTML page.
func Document(title, text string) string {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	return fmt.Sprintf(documentTemplate, title, Body(text))
}

func inline(text string) string {
	text = strongPattern.ReplaceAllString(text, "<strong>$1</strong>")
	text = emPattern.ReplaceAllString(text, "<em>$1</em>")
	return commandPattern.ReplaceAllStringFunc(text, wrapCommand)
}

func wrapCommand(match string) string {
	if strings.HasPrefix(match, "`") {
		return "<code>" + strings.Trim(match, "`") + "</code>"
	}
	// Keep the whitespace that anchored the command outside the tag.
	trimmed := strings.TrimLeft(match, " \t\r\f\v")
	lead := match[:len(match)-len(trimmed)]
	return lead + "<code>" + trimmed + "</code>"
}

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            line-height: 1.6;
            padding: 20px;
        }
        code {
            display: block;
            background-color: #f4f4f4;
            padding: 6px;
            margin: 3px 0;
            border-radius: 4px;
            white-space: pre-wrap;
            word-break: break-all;
            font-size: 14px;
        }
        p {
            margin: 0 0 10px;
        }
        ol {
            padding-left: 20px;
        }
        li {
            margin-bottom: 10px;
        }
        strong {
            font-weight: bold;
        }
        em {
            font-style: italic;
        }
    </style>
</head>
<body>
    %s
</body>
</html>`
