package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		body          string
		expectedGrade string
	}{
		{
			name:          "nested payload",
			body:          `{"fee_structure": {"grade": "5", "academic_year": "2025-2026"}}`,
			expectedGrade: "5",
		},
		{
			name:          "flat payload",
			body:          `{"grade": "6", "academic_year": "2025-2026"}`,
			expectedGrade: "6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest("POST", "/fee-structures", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var input services.StructureInput
			err := BindNestedOrFlat(c, "fee_structure", &input)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedGrade, input.Grade)
			assert.Equal(t, "2025-2026", input.AcademicYear)
		})
	}
}

func TestBindNestedOrFlatBodyRestored(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"grade": "5", "academic_year": "2025-2026"}`
	c.Request, _ = http.NewRequest("POST", "/fee-structures", bytes.NewBufferString(body))

	var first, second services.StructureInput
	assert.NoError(t, BindNestedOrFlat(c, "fee_structure", &first))
	// The body must still be readable for a second bind
	assert.NoError(t, BindNestedOrFlat(c, "fee_structure", &second))
	assert.Equal(t, first.Grade, second.Grade)
}
