package server

import (
	"net/http"

	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/store"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const (
	ErrorBadRequest       = 40000
	ErrorNotFound         = 40400
	ErrorInternal         = 50000
	ErrorStoreUnavailable = 50300
)

// statusOf maps an error returned by social.API to an HTTP status and error
// code.
func statusOf(err error) (int, int) {
	switch {
	case errors.Is(err, loader.ErrMalformedInput):
		return http.StatusBadRequest, ErrorBadRequest
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrorStoreUnavailable
	default:
		return http.StatusInternalServerError, ErrorInternal
	}
}

// abortWithError writes {code, msg} plus any extra fields and stops the chain.
func abortWithError(c *gin.Context, err error, extra gin.H) {
	status, code := statusOf(err)
	abortWithStatus(c, status, code, err, extra)
}

func abortWithStatus(c *gin.Context, status, code int, err error, extra gin.H) {
	body := gin.H{
		"code": code,
		"msg":  err.Error(),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
