// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeBrandNotFound       ErrorCode = "3001"
	CodeInfluencerNotFound  ErrorCode = "3002"
	CodeCardNotFound        ErrorCode = "3003"
	CodePersonaNotFound     ErrorCode = "3004"
	CodeEnvironmentNotFound ErrorCode = "3005"
	CodeRunNotFound         ErrorCode = "3006"

	// 业务错误 (4xxx)
	CodeGenerationFailed      ErrorCode = "4001"
	CodeNoPersonas            ErrorCode = "4002"
	CodeNoEnvironments        ErrorCode = "4003"
	CodeNoInfluencers         ErrorCode = "4004"
	CodeInsufficientAnalysis  ErrorCode = "4005"
	CodeLLMCallFailed         ErrorCode = "4006"
	CodeImageGenerationFailed ErrorCode = "4007"
	CodeContentFetchFailed    ErrorCode = "4008"

	// 外部服务错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeVectorDBError    ErrorCode = "5003"
	CodeStorageError     ErrorCode = "5004"
	CodeLLMProviderError ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使预定义错误经过 WithDetail/WithError 复制后仍可匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeBrandNotFound, CodeInfluencerNotFound, CodeCardNotFound,
		CodePersonaNotFound, CodeEnvironmentNotFound, CodeRunNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeNoPersonas, CodeNoEnvironments, CodeNoInfluencers, CodeInsufficientAnalysis, CodeContentFetchFailed:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeLLMCallFailed, CodeLLMProviderError, CodeImageGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrBrandNotFound       = New(CodeBrandNotFound, "brand not found")
	ErrInfluencerNotFound  = New(CodeInfluencerNotFound, "influencer not found")
	ErrCardNotFound        = New(CodeCardNotFound, "card not found")
	ErrPersonaNotFound     = New(CodePersonaNotFound, "persona not found")
	ErrEnvironmentNotFound = New(CodeEnvironmentNotFound, "environment not found")
	ErrRunNotFound         = New(CodeRunNotFound, "workflow run not found")

	ErrGenerationFailed      = New(CodeGenerationFailed, "card generation failed")
	ErrNoPersonas            = New(CodeNoPersonas, "brand has no personas")
	ErrNoEnvironments        = New(CodeNoEnvironments, "brand has no environments")
	ErrNoInfluencers         = New(CodeNoInfluencers, "no influencers available")
	ErrInsufficientAnalysis  = New(CodeInsufficientAnalysis, "content analysis returned too few personas or environments")
	ErrLLMCallFailed         = New(CodeLLMCallFailed, "LLM call failed")
	ErrImageGenerationFailed = New(CodeImageGenerationFailed, "image generation failed")
	ErrContentFetchFailed    = New(CodeContentFetchFailed, "failed to fetch content sources")
)

// IsAppError 检查错误链中是否包含 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
