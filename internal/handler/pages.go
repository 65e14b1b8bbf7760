package handler

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

// The accept/decline links land interpreters on plain HTML pages, not
// JSON: the click comes from a mail client, so the response must be
// readable in a browser with no app in front of it.

var linkPage = template.Must(template.New("link").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, Arial, sans-serif; background: #f5f6f8; margin: 0; }
.card { max-width: 480px; margin: 10vh auto; background: #fff; border-radius: 8px;
        padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,.08); text-align: center; }
h1 { font-size: 22px; margin: 0 0 12px; color: {{.Color}}; }
p { color: #444; line-height: 1.5; }
.detail { text-align: left; background: #f8f9fa; border-radius: 6px; padding: 12px 16px; margin-top: 16px; }
.detail div { margin: 4px 0; font-size: 14px; }
</style>
</head>
<body>
<div class="card">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Rows}}<div class="detail">{{range .Rows}}<div><b>{{.Label}}:</b> {{.Value}}</div>{{end}}</div>{{end}}
</div>
</body>
</html>`))

type pageRow struct {
	Label string
	Value string
}

type pageData struct {
	Title   string
	Message string
	Color   string
	Rows    []pageRow
}

func renderPage(c echo.Context, status int, data pageData) error {
	if data.Color == "" {
		data.Color = "#1a7f37"
	}
	var buf bytes.Buffer
	if err := linkPage.Execute(&buf, data); err != nil {
		return c.HTML(http.StatusInternalServerError, "<h1>Something went wrong</h1>")
	}
	return c.HTML(status, buf.String())
}

func pageExpired(c echo.Context) error {
	return renderPage(c, http.StatusGone, pageData{
		Title:   "Link Expired",
		Message: "This link is invalid or has expired. Please contact the office if you still need to respond to this assignment.",
		Color:   "#b42318",
	})
}

func pageNotFound(c echo.Context) error {
	return renderPage(c, http.StatusNotFound, pageData{
		Title:   "Assignment Not Found",
		Message: "We could not find this assignment. It may have been removed.",
		Color:   "#b42318",
	})
}

func pageAlreadyProcessed(c echo.Context, status string) error {
	return renderPage(c, http.StatusConflict, pageData{
		Title:   "Already Processed",
		Message: "This assignment has already been processed (current status: " + status + "). No further action is needed.",
		Color:   "#b54708",
	})
}
