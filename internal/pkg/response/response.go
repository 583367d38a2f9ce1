package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Plain-text bodies returned by the listing endpoints.
const (
	MsgPropertiesRequired = "All properties should be required."
	MsgInternalError      = "Internal Server Error."
)

// AbortError writes the JSON error envelope and stops the handler chain.
func AbortError(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func Text(c *gin.Context, statusCode int, message string) {
	c.String(statusCode, message)
}

// InternalError answers 500 without leaking err to the client; err is
// attached to the context so the error logger records it.
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.String(http.StatusInternalServerError, MsgInternalError)
}
