package server

import (
	"github.com/gin-gonic/gin"

	apiv1 "github.com/leptonai/harvester/api/v1"
)

const (
	URLPathV1Status = "/v1/status"
	URLPathV1Files  = "/v1/files"
)

// StatusProvider reports the state of the running harvester.
type StatusProvider interface {
	Status() apiv1.Status
}

func createStatusHandler(p StatusProvider) func(c *gin.Context) {
	return func(c *gin.Context) {
		writeResponse(c, p.Status())
	}
}

func createFilesHandler(p StatusProvider) func(c *gin.Context) {
	return func(c *gin.Context) {
		files := p.Status().Files
		if files == nil {
			files = []apiv1.FileStatus{}
		}
		writeResponse(c, files)
	}
}
