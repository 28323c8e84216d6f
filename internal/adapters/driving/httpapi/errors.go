package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a core error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidFilter), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccessorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the JSON error body for err and stops the chain.
// Internal errors are logged and reported without detail.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()

	switch status {
	case http.StatusServiceUnavailable:
		c.Header("Retry-After", "1")
		s.log.Warn("corpus unavailable", "path", c.Request.URL.Path, "error", err)
	case http.StatusInternalServerError:
		s.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
		msg = http.StatusText(status)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// bindingError converts a query binding failure into ErrInvalidInput,
// naming the offending parameters when validation rejected them.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		part := fe.Field() + " failed " + fe.Tag()
		if fe.Param() != "" {
			part += "=" + fe.Param()
		}
		parts = append(parts, part)
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(parts, "; "))
}
