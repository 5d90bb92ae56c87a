package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// RAG 服务错误码 (AA = 20)。
var (
	// ErrRAGValidation 调用方输入非法，不重试。
	ErrRAGValidation = Register(New(MakeCode(ServiceRAG, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))

	// ErrRAGConfiguration 配置错误（chunk 参数、向量维度不一致），致命且不重试。
	ErrRAGConfiguration = Register(New(MakeCode(ServiceRAG, CategoryConfig, 1), http.StatusInternalServerError, codes.FailedPrecondition, "Invalid configuration", "配置无效"))

	// ErrRAGEmbedding 向量化后端失败。
	ErrRAGEmbedding = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 1), http.StatusBadGateway, codes.Unavailable, "Embedding failed", "向量化失败"))

	// ErrRAGStore 向量存储后端失败。
	ErrRAGStore = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 2), http.StatusBadGateway, codes.Unavailable, "Vector store operation failed", "向量存储操作失败"))

	// ErrRAGUnavailable 启动时向量存储在重试上限内始终不可用。
	ErrRAGUnavailable = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 3), http.StatusServiceUnavailable, codes.Unavailable, "Vector store unavailable", "向量存储不可用"))

	// ErrRAGAnswerer 答案生成失败，仅在内部使用并降级为占位答案。
	ErrRAGAnswerer = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 4), http.StatusBadGateway, codes.Unavailable, "Answer generation failed", "答案生成失败"))

	// ErrRAGNotReady 服务尚未完成初始化。
	ErrRAGNotReady = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 5), http.StatusServiceUnavailable, codes.Unavailable, "RAG service not initialized", "RAG 服务尚未初始化"))
)
