package frontend

import (
	"embed"
	"html/template"
	"io"
	"net/url"

	"github.com/labstack/echo/v4"
)

const viewsPattern = "views/*.html"

//go:embed views/*.html
var templateFS embed.FS

//go:embed views/icon.svg
var assetsFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"queryEscape": url.QueryEscape,
}).ParseFS(templateFS, viewsPattern))

// Template is the echo renderer for the embedded views.
type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}
