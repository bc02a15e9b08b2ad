package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartkit/chartwatch/internal/core/patterns"
)

// =============================================================================
// Parse Tests
// =============================================================================

func TestParse_FullFile(t *testing.T) {
	content := `
window: 5
detectors:
  head_shoulder:
    window: 7
  double_top_bottom:
    threshold: 0.02
  pivots:
    enabled: false
`
	r, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, 5, r.Window)
	assert.Equal(t, 7, r.Detectors["head_shoulder"].Window)
	assert.Equal(t, 0.02, r.Detectors["double_top_bottom"].Threshold)
	require.NotNil(t, r.Detectors["pivots"].Enabled)
	assert.False(t, *r.Detectors["pivots"].Enabled)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("   \n")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("detectors: [unclosed")
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParse_UnknownDetector(t *testing.T) {
	_, err := Parse("detectors:\n  cup_and_handle:\n    window: 4\n")
	assert.ErrorIs(t, err, patterns.ErrUnknownDetector)
}

func TestParse_InvalidWindow(t *testing.T) {
	_, err := Parse("window: 1\n")
	assert.ErrorIs(t, err, patterns.ErrInvalidWindow)

	_, err = Parse("detectors:\n  triangle:\n    window: 1\n")
	assert.ErrorIs(t, err, patterns.ErrInvalidWindow)
}

// =============================================================================
// Spec Resolution Tests
// =============================================================================

func TestSpecs_DefaultsWhenEmptyRules(t *testing.T) {
	r := &Rules{}
	specs := r.Specs()

	require.Len(t, specs, len(patterns.Names()))
	for _, spec := range specs {
		assert.Zero(t, spec.Window)
		assert.Zero(t, spec.Threshold)
	}
}

func TestSpecs_AppliesOverridesAndDisables(t *testing.T) {
	disabled := false
	r := &Rules{
		Window: 5,
		Detectors: map[string]Rule{
			patterns.DetectorHeadShoulder:    {Window: 7},
			patterns.DetectorDoubleTopBottom: {Threshold: 0.02},
			patterns.DetectorPivots:          {Enabled: &disabled},
		},
	}

	specs := r.Specs()
	require.Len(t, specs, len(patterns.Names())-1)

	byName := make(map[string]patterns.Spec, len(specs))
	for _, spec := range specs {
		byName[spec.Name] = spec
	}

	assert.Equal(t, 7, byName[patterns.DetectorHeadShoulder].Window)
	assert.Equal(t, 5, byName[patterns.DetectorTriangle].Window)
	assert.Equal(t, 0.02, byName[patterns.DetectorDoubleTopBottom].Threshold)
	_, hasPivots := byName[patterns.DetectorPivots]
	assert.False(t, hasPivots)
}
