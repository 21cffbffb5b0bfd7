package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type codedError struct {
	code uint32
	msg  string
}

func (e *codedError) Error() string { return e.msg }

func (e *codedError) Code() uint32 { return e.code }

// AsCodeErr builds an error carrying a business code for the JSON envelope.
func AsCodeErr(code uint32, msg string) error {
	return &codedError{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes the failure envelope. The HTTP status stays 200, the business
// code in the body carries the failure.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, AsCodeErr(uint32(code), message))
}
