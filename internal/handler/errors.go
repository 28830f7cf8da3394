package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	contracts "mailsorter/contracts/api"
	"mailsorter/pkg/logger"
	"mailsorter/pkg/util"
)

// abortWithError maps err onto a status and writes {"error": ...}.
func abortWithError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	status, errType := util.ClassifyError(err)
	msg := fallback
	if status >= 500 {
		msg = util.ErrorMessage(err, fallback)
	}
	logger.WithTrace(c.Request.Context(), log).Warn("request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.String("error_type", errType),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(status, contracts.ErrorResponse{Error: msg})
}
