package http

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

// DocsOptions locates the API description and the route it is served under.
type DocsOptions struct {
	Route    string // defaults to /docs
	SpecPath string // defaults to api/openapi.yaml
}

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}} {{.Version}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: {{.SpecURL}}, dom_id: '#swagger-ui', deepLinking: true});
</script>
</body>
</html>`))

// apiDocs is a parsed and validated OpenAPI document with its renderings.
type apiDocs struct {
	yaml []byte
	json []byte
	page []byte
}

func loadDocs(route, specPath string) (*apiDocs, error) {
	raw, err := os.ReadFile(specPath)
	if err != nil {
		return nil, err
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	js, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var page bytes.Buffer
	err = docsPage.Execute(&page, struct {
		Title, Version, SpecURL string
	}{doc.Info.Title, doc.Info.Version, route + "/openapi.json"})
	if err != nil {
		return nil, err
	}
	return &apiDocs{yaml: raw, json: js, page: page.Bytes()}, nil
}

// SetupDocs validates the OpenAPI document once and serves Swagger UI at the
// docs route with the document as YAML and JSON beneath it. An unreadable or
// invalid document is logged and its routes answer 404.
func SetupDocs(app *fiber.App, opts DocsOptions) {
	route := strings.TrimSuffix(opts.Route, "/")
	if route == "" {
		route = "/docs"
	}
	specPath := opts.SpecPath
	if specPath == "" {
		specPath = "api/openapi.yaml"
	}

	docs, err := loadDocs(route, specPath)
	if err != nil {
		slog.Warn("api docs disabled", "path", specPath, "error", err)
	}

	serve := func(contentType string, body func(*apiDocs) []byte) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if docs == nil {
				return errNotFound(c, "api description not available")
			}
			c.Set(fiber.HeaderContentType, contentType)
			return c.Send(body(docs))
		}
	}

	app.Get(route, serve(fiber.MIMETextHTMLCharsetUTF8, func(d *apiDocs) []byte { return d.page }))
	app.Get(route+"/openapi.yaml", serve("application/yaml", func(d *apiDocs) []byte { return d.yaml }))
	app.Get(route+"/openapi.json", serve(fiber.MIMEApplicationJSON, func(d *apiDocs) []byte { return d.json }))
}
