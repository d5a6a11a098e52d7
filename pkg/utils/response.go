package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response wraps every API reply.
type Response struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *AppError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type Meta struct {
	RunID  string `json:"run_id,omitempty"`
	Cached bool   `json:"cached,omitempty"`
	Total  int64  `json:"total,omitempty"`
}

func SendSuccessWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

// SendError replies with err.Status and aborts the handler chain.
func SendError(c *gin.Context, err *AppError) {
	c.AbortWithStatusJSON(err.Status, Response{Error: err})
}

func SendValidationError(c *gin.Context, message, details string) {
	SendError(c, NewAppError(ErrCodeValidation, message, details))
}
