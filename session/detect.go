package session

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageInfo summarizes an HTML page served where an image was expected.
type PageInfo struct {
	Title      string
	LoginForm  bool   // the page contains a password field
	FormAction string // action of the first form, if any
}

// InspectHTML extracts the title and login indicators from body. Parse
// failures yield an empty PageInfo rather than an error: the caller
// already knows the response was wrong.
func InspectHTML(body []byte) PageInfo {
	var info PageInfo

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		logSession("InspectHTML: parse failed: %v", err)
		return info
	}

	info.Title = strings.TrimSpace(doc.Find("title").First().Text())
	info.LoginForm = doc.Find(`input[type="password"]`).Length() > 0
	info.FormAction = doc.Find("form").First().AttrOr("action", "")

	logSession("InspectHTML: title=%q loginForm=%v action=%q", info.Title, info.LoginForm, info.FormAction)
	return info
}

// NewLoginRequiredError builds the error for an HTML response to url.
func NewLoginRequiredError(url string, body []byte) *LoginRequiredError {
	info := InspectHTML(body)
	return &LoginRequiredError{
		URL:       url,
		Title:     info.Title,
		LoginForm: info.LoginForm,
	}
}
