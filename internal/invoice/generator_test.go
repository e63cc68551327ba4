package invoice

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testData() Data {
	return Data{
		ContractID:      uuid.MustParse("a1b2c3d4-e5f6-4a01-8b23-456789abcdef"),
		ProjectTitle:    "Интеграция платёжного шлюза",
		ClientName:      "Анна",
		ClientEmail:     "anna@example.com",
		ContractorName:  "Борис",
		ContractorEmail: "boris@example.com",
		Amount:          42000.5,
		ReleasedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestData_Number(t *testing.T) {
	number := testData().Number()
	assert.Equal(t, "INV-A1B2C3D4E5F6", number)
}

func TestGenerate_ProducesValidPDF(t *testing.T) {
	pdf, err := Generate(testData())
	assert.NoError(t, err)

	content := string(pdf)
	assert.True(t, strings.HasPrefix(content, "%PDF-"))
	assert.Contains(t, content, "%%EOF")
	assert.Contains(t, content, "xref")
	assert.Contains(t, content, "Paid via Propel Escrow")
	assert.Contains(t, content, "INV-A1B2C3D4E5F6")
}

func TestGenerate_EscapesSpecialCharacters(t *testing.T) {
	data := testData()
	data.ProjectTitle = "Landing (v2) \\ final"

	pdf, err := Generate(data)
	assert.NoError(t, err)
	assert.Contains(t, string(pdf), `Landing \(v2\) \\ final`)
}
