package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	GRPCCode:  codes.OK,
	MessageEN: "Success",
	MessageZH: "成功",
})

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0), http.StatusBadRequest, codes.InvalidArgument, "Bad request", "请求错误"))

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Invalid parameter", "参数无效"))

	// ErrRouteNotFound indicates an unknown route.
	ErrRouteNotFound = Register(New(MakeCode(ServiceCommon, CategoryResource, 1), http.StatusNotFound, codes.NotFound, "Route not found", "路由不存在"))

	// ErrInternal indicates an unclassified server failure.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), http.StatusInternalServerError, codes.Internal, "Internal server error", "服务器内部错误"))

	// ErrPanic indicates a recovered panic.
	ErrPanic = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal, "Internal server error", "服务器内部错误"))

	// ErrRequestTimeout indicates the request deadline elapsed.
	ErrRequestTimeout = Register(New(MakeCode(ServiceCommon, CategoryTimeout, 0), http.StatusGatewayTimeout, codes.DeadlineExceeded, "Request timeout", "请求超时"))
)
