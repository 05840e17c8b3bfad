package webserver

import (
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sign in</title>
</head>
<body>
<form method="post" action="{{.Action}}">
<input type="hidden" name="_csrf" value="{{.CSRF}}">
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
<label>Email <input type="email" name="email" value="{{.Email}}" required></label>
{{with index .Fields "email"}}<small>{{.}}</small>{{end}}
<label>Password <input type="password" name="password" required></label>
{{with index .Fields "password"}}<small>{{.}}</small>{{end}}
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))

type loginPage struct {
	Action string
	CSRF   string
	Email  string
	Error  string
	Fields map[string]string
}

type templateRenderer struct {
	templates map[string]*template.Template
}

func (t *templateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "template "+name+" not found")
	}
	return tmpl.Execute(w, data)
}

func newTemplateRenderer() *templateRenderer {
	return &templateRenderer{
		templates: map[string]*template.Template{
			"login": loginTemplate,
		},
	}
}
