package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/briefer/internal/brief"
	"github.com/mohammad-safakhou/briefer/internal/fetch"
	"github.com/mohammad-safakhou/briefer/internal/store"
)

var briefsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "briefer_briefs_processed_total",
	Help: "Research brief pipelines finished, by final status.",
}, []string{"status"})

// SourceFetcher is the batch fetch dependency of the handler.
type SourceFetcher interface {
	FetchAll(ctx context.Context, urls []string) []fetch.Source
}

// BriefGenerator is the synthesis dependency of the handler.
type BriefGenerator interface {
	Generate(ctx context.Context, sources []fetch.Source) (brief.Result, error)
}

// BriefsHandler serves submission and retrieval of research briefs.
type BriefsHandler struct {
	Store   *store.Store
	Fetcher SourceFetcher
	Synth   BriefGenerator
	Logger  *log.Logger
}

func (h *BriefsHandler) Register(g *echo.Group) {
	g.POST("", h.submit)
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

// submit validates the batch, records it as processing and kicks off the
// pipeline in the background. The pending record is returned immediately.
func (h *BriefsHandler) submit(c echo.Context) error {
	var req SubmitBriefRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	urls, err := validateURLs(req.URLs)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := h.Store.CreateBrief(c.Request().Context(), urls)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Logger.Printf("created research brief %s", b.ID)

	// Submissions run their pipelines independently; there is no queue or
	// admission control. The request context ends with the response, so the
	// pipeline gets a background context.
	go h.process(context.Background(), b.ID, urls)

	return c.JSON(http.StatusCreated, toBriefResponse(b))
}

func (h *BriefsHandler) get(c echo.Context) error {
	b, ok, err := h.Store.GetBrief(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "research brief not found")
	}
	return c.JSON(http.StatusOK, toBriefResponse(b))
}

func (h *BriefsHandler) list(c echo.Context) error {
	limit := 5
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	briefs, err := h.Store.ListRecentBriefs(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]BriefResponse, 0, len(briefs))
	for _, b := range briefs {
		resp = append(resp, toBriefResponse(b))
	}
	return c.JSON(http.StatusOK, resp)
}

// process runs the fetch-and-synthesize pipeline for one submission and
// records the outcome. Fetch failures are absorbed upstream as sentinel
// sources; only a terminal synthesis failure or a store fault marks the
// record failed.
func (h *BriefsHandler) process(ctx context.Context, id string, urls []string) {
	h.Logger.Printf("processing research brief %s", id)

	sources := h.Fetcher.FetchAll(ctx, urls)
	result, err := h.Synth.Generate(ctx, sources)
	if err != nil {
		h.fail(ctx, id, err)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		h.fail(ctx, id, err)
		return
	}
	if err := h.Store.CompleteBrief(ctx, id, payload); err != nil {
		h.Logger.Printf("error storing research brief %s: %v", id, err)
		return
	}
	briefsProcessed.WithLabelValues(store.StatusCompleted).Inc()
	h.Logger.Printf("successfully completed research brief %s", id)
}

func (h *BriefsHandler) fail(ctx context.Context, id string, cause error) {
	briefsProcessed.WithLabelValues(store.StatusFailed).Inc()
	h.Logger.Printf("error processing research brief %s: %v", id, cause)
	if err := h.Store.FailBrief(ctx, id, cause.Error()); err != nil {
		h.Logger.Printf("error marking research brief %s failed: %v", id, err)
	}
}
