package server

import (
	"github.com/gin-gonic/gin"

	"github.com/leptonai/harvester/pkg/config"
)

const URLPathAdminConfig = "/admin/config"

func createConfigHandler(cfg *config.Config) func(c *gin.Context) {
	return func(c *gin.Context) {
		writeResponse(c, cfg)
	}
}
