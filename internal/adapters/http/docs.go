package http

import (
	"os"

	"github.com/gofiber/fiber/v2"
)

// swaggerUIHTML opens the explorer with "Try it out" enabled.
const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>EBT Finder API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>
    body{margin:0;background:#fafafa;font-family:sans-serif}
    header{padding:12px 24px;background:#1b5e20;color:#fff}
    header p{margin:4px 0 0;font-size:14px;opacity:.85}
  </style>
</head>
<body>
  <header>
    <strong>EBT Finder API</strong>
    <p>Find SNAP/EBT retailers by distance or address. Try <code>GET /v1/locations/search?lat=34.05&amp;lon=-118.24</code>.</p>
  </header>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.yaml',
      dom_id: '#swagger-ui',
      deepLinking: true,
      docExpansion: 'list',
      defaultModelsExpandDepth: 0,
      tryItOutEnabled: true,
      filter: true,
      presets: [SwaggerUIBundle.presets.apis],
    });
  </script>
</body>
</html>`

// SetupDocs serves the API explorer at /docs and the OpenAPI document read
// from specPath at /docs/openapi.yaml.
func SetupDocs(app *fiber.App, specPath string) {
	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(specPath)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("openapi document unavailable", "path", specPath, "error", err)
			return errNotFound(c, "openapi document not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})
}
