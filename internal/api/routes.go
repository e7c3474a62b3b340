package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"

	"github.com/evalgate/evalgate/internal/api/middleware"
	"github.com/evalgate/evalgate/internal/models"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// Health endpoint
	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/test-sets").
			To(handler.CreateTestSet).
			Doc("Register a test set with its cases").
			Metadata(restfulspec.KeyOpenAPITags, []string{"test-sets"}).
			Reads(CreateTestSetRequest{}).
			Writes(models.TestSet{}).
			Returns(201, "Created", models.TestSet{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/test-sets").
			To(handler.ListTestSets).
			Doc("List test sets").
			Metadata(restfulspec.KeyOpenAPITags, []string{"test-sets"}).
			Writes([]models.TestSet{}).
			Returns(200, "OK", []models.TestSet{}))

	ws.
		Route(ws.GET("/test-sets/{test_set_id}/cases").
			To(handler.ListTestCases).
			Doc("List a test set's cases").
			Metadata(restfulspec.KeyOpenAPITags, []string{"test-sets"}).
			Param(ws.PathParameter("test_set_id", "Test set UUID").DataType("string")).
			Writes([]models.TestCase{}).
			Returns(200, "OK", []models.TestCase{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/test-sets/{test_set_id}/metrics/{metric}").
			To(handler.MetricsHistory).
			Doc("Metric history across a test set's runs").
			Metadata(restfulspec.KeyOpenAPITags, []string{"test-sets"}).
			Param(ws.PathParameter("test_set_id", "Test set UUID").DataType("string")).
			Param(ws.PathParameter("metric", "Summary metric name, e.g. pass_rate").DataType("string")).
			Writes([]models.MetricsHistory{}).
			Returns(200, "OK", []models.MetricsHistory{}))

	ws.
		Route(ws.POST("/runs").
			To(handler.TriggerRun).
			Doc("Trigger an evaluation run").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Reads(TriggerRunRequest{}).
			Writes(models.EvaluationRun{}).
			Returns(202, "Accepted", models.EvaluationRun{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(404, "Test Set Not Found", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/runs").
			To(handler.ListRuns).
			Doc("List runs, newest first").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Param(ws.QueryParameter("test_set_id", "Filter by test set UUID").DataType("string").Required(false)).
			Param(ws.QueryParameter("limit", "Maximum rows (default 20)").DataType("integer").Required(false)).
			Writes([]models.EvaluationRun{}).
			Returns(200, "OK", []models.EvaluationRun{}))

	ws.
		Route(ws.GET("/runs/{run_id}").
			To(handler.GetRun).
			Doc("Get one run").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Param(ws.PathParameter("run_id", "Run UUID").DataType("string")).
			Writes(models.EvaluationRun{}).
			Returns(200, "OK", models.EvaluationRun{}).
			Returns(404, "Run Not Found", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/runs/{run_id}/results").
			To(handler.ListResults).
			Doc("Per-case results for a run").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Param(ws.PathParameter("run_id", "Run UUID").DataType("string")).
			Writes([]models.EvaluationResult{}).
			Returns(200, "OK", []models.EvaluationResult{}))

	ws.
		Route(ws.GET("/runs/{run_id}/gate").
			To(handler.GateDecision).
			Doc("Gate decision for a finished run").
			Metadata(restfulspec.KeyOpenAPITags, []string{"gate"}).
			Param(ws.PathParameter("run_id", "Run UUID").DataType("string")).
			Writes(models.GateDecision{}).
			Returns(200, "OK", models.GateDecision{}).
			Returns(404, "Run Not Found", middleware.ErrorResponse{}).
			Returns(409, "Run Not Finished", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/runs/{run_id}/diff").
			To(handler.RegressionDiff).
			Doc("Regression diff against the latest passing baseline").
			Metadata(restfulspec.KeyOpenAPITags, []string{"gate"}).
			Param(ws.PathParameter("run_id", "Run UUID").DataType("string")).
			Writes(models.RegressionDiff{}).
			Returns(200, "OK", models.RegressionDiff{}).
			Returns(404, "Run Not Found", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/runs/{run_id}/cancel").
			To(handler.CancelRun).
			Doc("Request cancellation of a pending or running run").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Param(ws.PathParameter("run_id", "Run UUID").DataType("string")).
			Writes(models.EvaluationRun{}).
			Returns(200, "OK", models.EvaluationRun{}).
			Returns(404, "Run Not Found", middleware.ErrorResponse{}).
			Returns(409, "Run Already Terminal", middleware.ErrorResponse{}))

	container.Add(ws)

	// Swagger JSON for the whole container.
	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
		PostBuildSwaggerObjectHandler: func(s *spec.Swagger) {
			s.Info = &spec.Info{InfoProps: spec.InfoProps{
				Title:       "evalgate",
				Description: "Evaluation and release-gate engine for AI pipelines",
				Version:     "1.0.0",
			}}
		},
	}))
}
