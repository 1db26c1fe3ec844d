package http

import (
	"bytes"
	"html/template"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
)

// swaggerUIVersion pins the swagger-ui-dist release served from the CDN.
const swaggerUIVersion = "5.17.14"

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}} {{.Version}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@{{.UIVersion}}/swagger-ui.css">
</head>
<body>
  <div id="docs"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@{{.UIVersion}}/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: {{.SpecURL}},
      dom_id: '#docs',
      docExpansion: 'list',
      filter: true,
      persistAuthorization: true,
      displayRequestDuration: true,
      supportedSubmitMethods: ['get', 'post', 'patch'],
    });
  </script>
</body>
</html>`))

// OpenAPIPath is where the OpenAPI document is read from, relative to the
// working directory of the api binary.
var OpenAPIPath = "api/openapi.yaml"

// SetupDocs registers Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml. The document is read once; when it is missing the
// UI still loads and the document route answers 404.
func SetupDocs(app *fiber.App) {
	var page bytes.Buffer
	_ = docsPage.Execute(&page, struct {
		Title, Version, UIVersion, SpecURL string
	}{"PawCircle Nearby API", Version, swaggerUIVersion, "/docs/openapi.yaml"})
	html := page.Bytes()

	doc, err := os.ReadFile(OpenAPIPath)
	if err != nil {
		slog.Warn("openapi document unavailable", "path", OpenAPIPath, "error", err)
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(html)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "openapi document not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(doc)
	})
}
