package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/models"
)

const OpenAPIPath = "/openapi.json"

// NewContainer builds the HTTP container with filters, routes and the
// OpenAPI document.
func NewContainer(handler *Handler) *restful.Container {
	container := restful.NewContainer()
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)
	container.Filter(middleware.CompactJSON)

	RegisterRoutes(container, handler)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       OpenAPIPath,
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))

	return container
}

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// Health endpoint
	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	generateRoute(ws, "/generate", handler)
	updateRoute(ws, "/update", handler)

	container.Add(ws)

	// Paths kept for existing browser clients
	legacy := new(restful.WebService)

	legacy.
		Path("/Home").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	generateRoute(legacy, "/GenerateChartAjax", handler)
	updateRoute(legacy, "/UpdateChartAjax", handler)

	container.Add(legacy)
}

func generateRoute(ws *restful.WebService, path string, handler *Handler) {
	ws.
		Route(ws.POST(path).
			To(handler.Generate).
			Doc("Generate a chart configuration from a prompt").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chart"}).
			Reads(models.GenerateRequest{}).
			Writes(models.ChartResponse{}).
			Returns(200, "OK", models.ChartResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}).
			Returns(503, "Upstream Unavailable", middleware.ErrorResponse{}))
}

func updateRoute(ws *restful.WebService, path string, handler *Handler) {
	ws.
		Route(ws.POST(path).
			To(handler.Update).
			Doc("Modify an existing chart configuration").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chart"}).
			Reads(models.UpdateRequest{}).
			Writes(models.ChartResponse{}).
			Returns(200, "OK", models.ChartResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}).
			Returns(503, "Upstream Unavailable", middleware.ErrorResponse{}))
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Chart Agent API",
			Description: "Highcharts configuration generation backed by a completion model",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "chart", Description: "Chart generation and updates"}},
	}
}
