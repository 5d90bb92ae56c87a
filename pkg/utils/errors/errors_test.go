package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestMakeAndParseCode(t *testing.T) {
	code := MakeCode(ServiceRAG, CategoryNetwork, 2)
	assert.Equal(t, 2010002, code)

	svc, cat, seq := ParseCode(code)
	assert.Equal(t, ServiceRAG, svc)
	assert.Equal(t, CategoryNetwork, cat)
	assert.Equal(t, 2, seq)

	assert.True(t, IsClientError(ErrRAGValidation.Code))
	assert.True(t, IsServerError(ErrRAGStore.Code))
}

func TestErrnoWithCauseKeepsIdentity(t *testing.T) {
	root := stderrors.New("connection refused")
	err := ErrRAGStore.WithMessagef("insert into %q", "documents").WithCause(root)

	assert.True(t, stderrors.Is(err, ErrRAGStore))
	assert.False(t, stderrors.Is(err, ErrRAGEmbedding))
	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), `insert into "documents"`)
	assert.Contains(t, err.Error(), "connection refused")

	// the sentinel itself is untouched
	assert.Equal(t, "Vector store operation failed", ErrRAGStore.MessageEN)
	assert.Nil(t, ErrRAGStore.Cause())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("ingest: %w", ErrRAGValidation.WithMessage("content is empty"))
	e := FromError(wrapped)
	assert.Equal(t, ErrRAGValidation.Code, e.Code)
	assert.Equal(t, "content is empty", e.MessageEN)

	plain := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus())
}

func TestIsCodeAndGetCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", ErrRAGUnavailable)
	assert.True(t, IsCode(err, ErrRAGUnavailable.Code))
	assert.Equal(t, ErrRAGUnavailable.Code, GetCode(err))
	assert.Equal(t, -1, GetCode(stderrors.New("plain")))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *Errno
		http int
		grpc codes.Code
	}{
		{"validation", ErrRAGValidation, http.StatusBadRequest, codes.InvalidArgument},
		{"configuration", ErrRAGConfiguration, http.StatusInternalServerError, codes.FailedPrecondition},
		{"embedding", ErrRAGEmbedding, http.StatusBadGateway, codes.Unavailable},
		{"store", ErrRAGStore, http.StatusBadGateway, codes.Unavailable},
		{"unavailable", ErrRAGUnavailable, http.StatusServiceUnavailable, codes.Unavailable},
		{"not ready", ErrRAGNotReady, http.StatusServiceUnavailable, codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.http, tt.err.HTTPStatus())
			assert.Equal(t, tt.grpc, tt.err.GRPCStatus())
		})
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrRAGStore.Code, http.StatusBadGateway, codes.Unavailable, "dup", ""))
	})

	e, ok := Lookup(ErrRAGStore.Code)
	assert.True(t, ok)
	assert.Same(t, ErrRAGStore, e)
}

func TestMessageLanguage(t *testing.T) {
	assert.Equal(t, "向量化失败", ErrRAGEmbedding.Message("zh-CN"))
	assert.Equal(t, "Embedding failed", ErrRAGEmbedding.Message("en"))
}

func TestFormatVerbose(t *testing.T) {
	err := ErrRAGStore.WithCause(stderrors.New("timeout"))
	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, "HTTP 502")
	assert.Contains(t, out, "caused by: timeout")
}
