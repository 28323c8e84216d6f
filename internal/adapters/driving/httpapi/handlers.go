package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// listRequest is the query string of GET /allbuilds.
type listRequest struct {
	Skip        int    `form:"skip" binding:"gte=0"`
	Limit       *int   `form:"limit" binding:"omitempty,gt=0"`
	BuildFilter string `form:"buildfilter"`
}

// ProblemsResponse is the body of GET /problems.
type ProblemsResponse struct {
	Builds []domain.Build `json:"builds"`
	Total  int            `json:"total"`
}

// MessagesResponse is the body of GET /messages.
type MessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleListBuilds(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.abortWithError(c, bindingError(err))
		return
	}

	filter, err := domain.ParseFilter(req.BuildFilter)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	limit := s.cfg.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	page, err := s.svc.Query.List(c.Request.Context(), filter, req.Skip, limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleFacets(c *gin.Context) {
	catalog, err := s.svc.Query.FacetCatalog(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	s.metrics.RecordFacets(catalog)

	etag := `"` + catalog.Fingerprint + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, catalog.Facets)
}

func (s *Server) handleManifest(c *gin.Context) {
	m, err := s.svc.Manifests.Get(c.Request.Context(), c.Param("build"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Raw)
}

func (s *Server) handleCompare(c *gin.Context) {
	result, err := s.svc.Comparisons.Compare(c.Request.Context(), c.Param("builda"), c.Param("buildb"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleProblems(c *gin.Context) {
	builds, err := s.svc.Query.Problems(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if builds == nil {
		builds = []domain.Build{}
	}
	c.JSON(http.StatusOK, ProblemsResponse{Builds: builds, Total: len(builds)})
}

func (s *Server) handleMessages(c *gin.Context) {
	msgs := []domain.Message{}
	if s.svc.Messages != nil {
		if got := s.svc.Messages.Messages(); got != nil {
			msgs = got
		}
	}
	c.JSON(http.StatusOK, MessagesResponse{Messages: msgs})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// etagMatches reports whether an If-None-Match header selects etag.
// Weak validators compare equal to their strong form.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
