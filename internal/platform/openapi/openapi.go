package openapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Param describes a query parameter.
type Param struct {
	Name        string
	Type        string // string, integer, number
	Description string
	Enum        []string
}

// Operation describes one HTTP endpoint. Request and Response name entries in
// the component schemas; an empty Request means the operation takes no body.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Tag         string
	Roles       []string
	Query       []Param
	Request     string
	Response    string
	// Produces lists extra response media types besides application/json.
	Produces []string
	// Errors lists the non-2xx statuses the operation can return.
	Errors []int
}

// Describer is implemented by handlers that document their own routes.
type Describer interface {
	Operations() []Operation
}

// Generator builds an OpenAPI 3.0 document from registered operations.
type Generator struct {
	version string
	baseURL string
	ops     []Operation
}

func NewGenerator(version, baseURL string) *Generator {
	return &Generator{version: version, baseURL: baseURL}
}

// Add registers operations. Paths are relative to the server URL.
func (g *Generator) Add(ops ...Operation) {
	g.ops = append(g.ops, ops...)
}

// Describe registers every operation the handlers document, prefixing their
// paths with the group they are mounted on.
func (g *Generator) Describe(prefix string, ds ...Describer) {
	for _, d := range ds {
		for _, op := range d.Operations() {
			op.Path = prefix + op.Path
			g.Add(op)
		}
	}
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]interface{})
	tagSet := make(map[string]bool)

	for _, op := range g.ops {
		item, _ := paths[op.Path].(map[string]interface{})
		if item == nil {
			item = make(map[string]interface{})
			paths[op.Path] = item
		}
		item[strings.ToLower(op.Method)] = buildOperation(op)
		if op.Tag != "" {
			tagSet[op.Tag] = true
		}
	}

	tags := make([]map[string]string, 0, len(tagSet))
	for _, name := range sortedKeys(tagSet) {
		tags = append(tags, map[string]string{"name": name})
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Readmission Risk API",
			"version":     g.version,
			"description": "Readmission risk assessment, follow-up planning and staffing simulation",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"tags":  tags,
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": componentSchemas(),
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
		},
	}
}

func buildOperation(op Operation) map[string]interface{} {
	out := map[string]interface{}{
		"operationId": op.OperationID,
		"summary":     op.Summary,
		"responses":   buildResponses(op),
	}
	if op.Tag != "" {
		out["tags"] = []string{op.Tag}
	}
	if len(op.Roles) > 0 {
		out["security"] = []map[string][]string{{"bearerAuth": {}}}
		out["x-roles"] = op.Roles
	}
	if len(op.Query) > 0 {
		out["parameters"] = buildParameters(op.Query)
	}
	if op.Request != "" {
		out["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": schemaRef(op.Request),
				},
			},
		}
	}
	return out
}

func buildParameters(params []Param) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(params))
	for _, p := range params {
		schema := map[string]interface{}{"type": p.Type}
		if len(p.Enum) > 0 {
			schema["enum"] = p.Enum
		}
		out = append(out, map[string]interface{}{
			"name":        p.Name,
			"in":          "query",
			"required":    false,
			"description": p.Description,
			"schema":      schema,
		})
	}
	return out
}

func buildResponses(op Operation) map[string]interface{} {
	content := make(map[string]interface{})
	if op.Response != "" {
		content["application/json"] = map[string]interface{}{"schema": schemaRef(op.Response)}
	}
	for _, mt := range op.Produces {
		content[mt] = map[string]interface{}{
			"schema": map[string]string{"type": "string", "format": "binary"},
		}
	}

	ok := map[string]interface{}{"description": "OK"}
	if len(content) > 0 {
		ok["content"] = content
	}
	responses := map[string]interface{}{"200": ok}
	for _, code := range op.Errors {
		responses[strconv.Itoa(code)] = map[string]interface{}{
			"description": http.StatusText(code),
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{"schema": schemaRef("Error")},
			},
		}
	}
	return responses
}

func schemaRef(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisterRoutes registers the OpenAPI endpoints.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Readmission Risk API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`
