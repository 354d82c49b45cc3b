// Package httpmiddleware holds gin middleware shared by the control API,
// adapted from the teacher's internal/middleware/http (a net/http-handler
// recovery wrapper) into gin.HandlerFunc form to match the rest of this
// module's gin-based routing (see internal/middleware/logging.go's
// ZapRecovery, which already covers panic recovery for the router itself).
// ErrorResponder centralizes the JSON error-body shape so every control
// API handler returns the same {"error": "..."} envelope.
package httpmiddleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON body returned for any control API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSONError aborts the request with status and msg wrapped in an
// ErrorResponse, the common body shape the teacher's dto.ErrorPayload
// served for the net/http delivery path.
func JSONError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// NotFound is a 404 shorthand for missing episodes/resources.
func NotFound(c *gin.Context, msg string) {
	JSONError(c, http.StatusNotFound, msg)
}
