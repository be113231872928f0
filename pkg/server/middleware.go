package server

import (
	"time"

	"github.com/gin-contrib/requestid"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func installRootGinMiddlewares(router *gin.Engine) {
	router.Use(requestid.New())
	router.ContextWithFallback = true
}

// installCommonGinMiddlewares logs every request in UTC RFC3339 and
// turns handler panics into 500s.
func installCommonGinMiddlewares(router *gin.Engine, logger *zap.Logger) {
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
}
