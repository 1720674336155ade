package artifact

import (
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	gohtml "golang.org/x/net/html"
)

// InjectScript adds <script src="src"></script> to an HTML page, before
// </body> when there is one and at the end otherwise. The rest of the
// document is left byte-for-byte intact. A page that already loads src is
// returned unchanged.
func InjectScript(page, src string) (string, error) {
	tag := fmt.Sprintf(`<script src="%s"></script>`, html.EscapeString(src))

	tokenizer := gohtml.NewTokenizer(strings.NewReader(page))
	offset := 0
	bodyEnd := -1
	for {
		tt := tokenizer.Next()
		if tt == gohtml.ErrorToken {
			break
		}
		raw := len(tokenizer.Raw())
		token := tokenizer.Token()

		switch tt {
		case gohtml.StartTagToken, gohtml.SelfClosingTagToken:
			if token.Data == "script" && attr(token.Attr, "src") == src {
				return page, nil
			}
		case gohtml.EndTagToken:
			if token.Data == "body" && bodyEnd < 0 {
				bodyEnd = offset
			}
		}
		offset += raw
	}
	if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	if bodyEnd < 0 {
		return page + tag + "\n", nil
	}
	return page[:bodyEnd] + tag + "\n" + page[bodyEnd:], nil
}

func attr(attrs []gohtml.Attribute, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
