package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchBody struct {
	Query string `json:"query" binding:"required,notblank"`
	TopK  *int   `json:"top_k" binding:"omitempty,gt=0"`
}

type ingestForm struct {
	DocumentName string `form:"document_name" binding:"required"`
	SourceURL    string `json:"source_url" binding:"omitempty,url"`
}

func intPtr(n int) *int { return &n }

func TestValidateWithLang(t *testing.T) {
	v := New()

	assert.Nil(t, v.ValidateWithLang(&searchBody{Query: "ok", TopK: intPtr(3)}, LangEN))

	errs := v.ValidateWithLang(&searchBody{Query: "   "}, LangEN)
	require.True(t, errs.HasErrors())
	assert.Equal(t, "query", errs.Errors[0].Field)
	assert.Equal(t, "query must not be blank", errs.First())

	errs = v.ValidateWithLang(&searchBody{Query: "q", TopK: intPtr(0)}, LangEN)
	require.True(t, errs.HasErrors())
	assert.Equal(t, "top_k", errs.Errors[0].Field)
	assert.Equal(t, "gt", errs.Errors[0].Tag)
}

func TestFieldNamesFromTags(t *testing.T) {
	errs := New().ValidateWithLang(&ingestForm{SourceURL: "not a url"}, LangEN)
	require.NotNil(t, errs)
	fields := errs.ByField()
	assert.Contains(t, fields, "document_name")
	assert.Contains(t, fields, "source_url")
	assert.Len(t, errs.Messages(), 2)
}

func TestChineseTranslation(t *testing.T) {
	errs := New().ValidateWithLang(&searchBody{Query: " "}, LangZH)
	require.NotNil(t, errs)
	assert.Equal(t, "query不能为空白", errs.First())
}

func TestGinBinding(t *testing.T) {
	b := New().Binding()

	assert.NoError(t, b.ValidateStruct(&searchBody{Query: "q"}))
	assert.NoError(t, b.ValidateStruct([]string{"not", "a", "struct"}))
	assert.NoError(t, b.ValidateStruct((*searchBody)(nil)))

	err := b.ValidateStruct(&searchBody{})
	require.Error(t, err)
	var verrs *ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.NotNil(t, b.Engine())
}

func TestStructUsesGlobal(t *testing.T) {
	assert.Nil(t, Struct(&searchBody{Query: "q"}))
	assert.NotNil(t, Struct(&searchBody{}))
	assert.Same(t, Global(), Global())
}
