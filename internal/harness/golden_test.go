package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"discount_without_invoice", "ghost_invoice_scan"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Lines(t *testing.T) {
	r := sampleResult()

	s := NewSnapshot("sample", r)

	assert.Equal(t, []string{"ORD-1 score=60 monitor [PRC-001,OIC-001]"}, s.Results)
	assert.Equal(t, " ORD-1 validation_started", s.Trail[0])
}
