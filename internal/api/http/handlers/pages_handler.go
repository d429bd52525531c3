package handlers

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loan-backoffice/internal/auth"
)

const pageLayout = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>{{.Title}} | {{.AppName}}</title></head>
<body>
{{if .Menu}}<nav><ul>
{{range .Menu}}<li><a href="{{.Href}}"{{if eq .Href $.Active}} aria-current="page"{{end}}>{{.Label}}</a></li>
{{end}}</ul>
<form method="post" action="/api/auth/logout"><button type="submit">Sair</button></form>
</nav>{{end}}
<main>
{{if .SignIn}}<h1>Entrar</h1>
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/api/auth/login">
<label>E-mail <input type="email" name="email" autocomplete="username" required></label>
<label>Senha <input type="password" name="password" autocomplete="current-password" required></label>
<button type="submit">Entrar</button>
</form>
{{else}}<h1>{{.Title}}</h1>
<section data-source="/api{{.Active}}"></section>
{{end}}</main>
</body>
</html>`

var signInErrors = map[string]string{
	"invalid_credentials": "E-mail ou senha inválidos.",
	"too_many_attempts":   "Muitas tentativas. Tente novamente mais tarde.",
	"invalid_request":     "Requisição inválida.",
}

type pageView struct {
	AppName string
	Title   string
	Active  string
	Menu    []auth.MenuItem
	SignIn  bool
	Error   string
}

// PagesHandler renders the server-side page shell.
type PagesHandler struct {
	appName string
	policy  *auth.Policy
	tmpl    *template.Template
}

// NewPagesHandler parses the layout template.
func NewPagesHandler(appName string, policy *auth.Policy) *PagesHandler {
	return &PagesHandler{
		appName: appName,
		policy:  policy,
		tmpl:    template.Must(template.New("layout").Parse(pageLayout)),
	}
}

// SignIn renders the sign-in form.
func (h *PagesHandler) SignIn(c *fiber.Ctx) error {
	return h.render(c, pageView{
		AppName: h.appName,
		Title:   "Entrar",
		SignIn:  true,
		Error:   signInErrors[c.Query("error")],
	})
}

// Root sends visitors to the dashboard; the gate takes it from there.
func (h *PagesHandler) Root(c *fiber.Ctx) error {
	return c.Redirect(auth.RouteDashboard, fiber.StatusFound)
}

// Section renders a protected section. It must run behind Gate.Pages.
func (h *PagesHandler) Section(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return c.Redirect(h.policy.SignInPath(), fiber.StatusFound)
	}

	menu := h.policy.Menu(session.Role, session.Settings)
	view := pageView{AppName: h.appName, Menu: menu}
	for _, item := range menu {
		if c.Path() == item.Href || strings.HasPrefix(c.Path(), item.Href+"/") {
			view.Title = item.Label
			view.Active = item.Href
			break
		}
	}
	return h.render(c, view)
}

func (h *PagesHandler) render(c *fiber.Ctx, view pageView) error {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, view); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
