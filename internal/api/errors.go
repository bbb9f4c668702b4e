package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"georag/internal/errs"
)

// statusFor maps an errs.Kind to the HTTP status §7 implies for it.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.InvalidInput, errs.Parse, errs.GeometryError, errs.CrsError, errs.DimensionMismatch:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Conflict:
		return http.StatusConflict
	case errs.Timeout:
		return http.StatusGatewayTimeout
	case errs.Cancelled:
		return http.StatusRequestTimeout
	case errs.IndexNotBuilt:
		return http.StatusPreconditionFailed
	case errs.IntegrityMismatch:
		return http.StatusConflict
	case errs.EmbedderUnavailable:
		return http.StatusServiceUnavailable
	case errs.Io:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as §7's {error, details?} payload with the
// status code its Kind implies.
func writeError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	c.JSON(statusFor(kind), errs.ToPayload(err))
}
