package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务码。除支付回调外，所有接口 HTTP 状态恒为 200，结果看 code
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodeConflict         = 1004
	CodeDuplicateAction  = 1005
	CodePaymentProvider  = 1006
	CodeServerError      = 5000
)

var defaultMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "请求参数有误",
	CodeAuthFailed:       "请先登录",
	CodePermissionDenied: "无权执行该操作",
	CodeResourceNotFound: "记录不存在",
	CodeConflict:         "支付状态已变化，请刷新后重试",
	CodeDuplicateAction:  "该操作已执行过",
	CodePaymentProvider:  "支付服务暂不可用",
	CodeServerError:      "服务器内部错误",
}

// Message 业务码的默认提示，未知码按服务器错误处理
func Message(code int) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return defaultMessages[CodeServerError]
}

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 列表接口的 data
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

func write(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = Message(code)
	}
	c.JSON(http.StatusOK, Response{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data interface{}) {
	write(c, CodeSuccess, "", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	write(c, CodeSuccess, message, data)
}

func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	write(c, CodeSuccess, "", PageData{Total: total, Page: page, PageSize: pageSize, Items: items})
}

// Error message 为空时使用业务码的默认提示
func Error(c *gin.Context, code int, message string) {
	write(c, code, message, nil)
}

func ParamError(c *gin.Context, message string)      { Error(c, CodeParamError, message) }
func AuthError(c *gin.Context, message string)       { Error(c, CodeAuthFailed, message) }
func PermissionError(c *gin.Context, message string) { Error(c, CodePermissionDenied, message) }
func NotFoundError(c *gin.Context, message string)   { Error(c, CodeResourceNotFound, message) }
func ConflictError(c *gin.Context, message string)   { Error(c, CodeConflict, message) }
func DuplicateError(c *gin.Context, message string)  { Error(c, CodeDuplicateAction, message) }
func ServerError(c *gin.Context, message string)     { Error(c, CodeServerError, message) }

// ProviderError 支付服务商拒绝请求，details 透传服务商的状态码与提示
func ProviderError(c *gin.Context, message string, details interface{}) {
	write(c, CodePaymentProvider, message, details)
}
