package response

import "github.com/gin-gonic/gin"

// Envelope is the uniform JSON body for every API response. Data and Count
// are omitted on failures, Error is omitted on successes.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success writes a success envelope with the given payload.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{
		Success: true,
		Data:    data,
	})
}

// SuccessWithCount writes a success envelope carrying a collection and its
// element count.
func SuccessWithCount(c *gin.Context, status int, data any, count int) {
	c.JSON(status, Envelope{
		Success: true,
		Data:    data,
		Count:   &count,
	})
}

// Fail writes a failure envelope with the given message.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{
		Success: false,
		Error:   message,
	})
}

// AbortFail writes a failure envelope and aborts the handler chain. Used by
// middleware.
func AbortFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   message,
	})
}
