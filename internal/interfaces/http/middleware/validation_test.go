package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationError(t *testing.T) {
	type request struct {
		Barcode  string `json:"barcode" binding:"required"`
		PageSize int    `json:"page_size" binding:"min=1"`
	}

	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	err := v.Struct(request{PageSize: 0})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "barcode: this field is required")
	assert.Contains(t, msg, "page_size: must be at least 1")
}

func TestFormatValidationErrorPassthrough(t *testing.T) {
	msg := FormatValidationError(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), msg)
}
