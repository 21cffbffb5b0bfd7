package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/aqstack/ragstore/internal/pkg/errcode"
	appErr "github.com/aqstack/ragstore/internal/pkg/errors"
	"github.com/aqstack/ragstore/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case appErr.IsConflict(err):
		response.Error(c, errcode.ErrDocumentBusy, "document is being processed")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrEmbeddingService):
		response.Error(c, errcode.ErrEmbeddingUnavailable, "embedding service unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
