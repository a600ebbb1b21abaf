package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const openapiPath = "docs/openapi.yaml"

// registerDocs exposes the raw OpenAPI document and a ReDoc viewer for it.
func registerDocs(e *echo.Echo) {
	e.File("/api/openapi.yaml", openapiPath)
	e.GET("/api/docs", docsPage)
}

func docsPage(c echo.Context) error {
	const page = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Callsight API</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>body{margin:0;padding:0;} .redoc-wrap{height:100vh;}</style>
  </head>
  <body>
    <div id="redoc" class="redoc-wrap"></div>
    <script src="https://cdn.jsdelivr.net/npm/redoc/bundles/redoc.standalone.js"></script>
    <script>
      Redoc.init('/api/openapi.yaml', {}, document.getElementById('redoc'))
    </script>
  </body>
</html>`
	return c.HTML(http.StatusOK, page)
}
