package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"Student", "Amount"},
		Rows: []map[string]string{
			{"Student": "Amina", "Amount": "5000.00"},
			{"Student": "Bilal", "Amount": "5500.00"},
		},
		Footer: map[string]string{"Student": "Total due", "Amount": "10500.00"},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Student,Amount\nAmina,5000.00\nBilal,5500.00\nTotal due,10500.00\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestCSVRenderMissingCellsStayEmpty(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Student", "Amount"},
		Rows:    []map[string]string{{"Student": "Amina"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student,Amount\nAmina,\n", string(out))
}
