package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"sigs.k8s.io/yaml"

	"github.com/leptonai/harvester/pkg/httputil"
)

// writeResponse encodes v in the format selected by the request
// Content-Type header: JSON by default, YAML on "application/yaml".
func writeResponse(c *gin.Context, v any) {
	switch c.GetHeader(httputil.RequestHeaderContentType) {
	case httputil.RequestHeaderYAML:
		yb, err := yaml.Marshal(v)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to marshal response " + err.Error()})
			return
		}
		c.Data(http.StatusOK, httputil.RequestHeaderYAML, yb)

	case httputil.RequestHeaderJSON, "":
		if c.GetHeader(httputil.RequestHeaderJSONIndent) == "true" {
			c.IndentedJSON(http.StatusOK, v)
			return
		}
		c.JSON(http.StatusOK, v)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid content type"})
	}
}
