package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON body with the given status. Handlers go through this
// package so candidate and job payloads render uniformly.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 response with the payload.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}
