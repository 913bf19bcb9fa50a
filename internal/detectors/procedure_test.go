package detectors_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
)

func TestNormalizeProcedure(t *testing.T) {
	cases := map[string]detectors.Procedure{
		"Отворена постапка": detectors.ProcedureOpen,
		"постапка со преговарање без објавување на оглас": detectors.ProcedureNegotiatedNoPub,
		"  Набавка од мала вредност  ":                    detectors.ProcedureLowValue,
		"КВАЛИФИКАЦИСКИ СИСТЕМ":                           detectors.ProcedureQualification,
		"negotiated without publication":                  detectors.ProcedureNegotiatedNoPub,
		"some new portal label":                           detectors.ProcedureUnknown,
		"":                                                detectors.ProcedureUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, detectors.NormalizeProcedure(raw), "label %q", raw)
	}
}

func TestProcedureTypeDetector(t *testing.T) {
	tenders := []domain.Tender{
		{ID: "T-1", ProcedureType: "Постапка со преговарање без објавување на оглас", EstimatedValue: mkd(3_000_000)},
		// low-value procedure stretched past the ceiling
		{ID: "T-2", ProcedureType: "Набавка од мала вредност", EstimatedValue: mkd(1_800_000)},
		// low-value procedure used where it belongs
		{ID: "T-3", ProcedureType: "Набавка од мала вредност", EstimatedValue: mkd(400_000)},
		{ID: "T-4", ProcedureType: "Квалификациски систем", EstimatedValue: mkd(2_000_000)},
		{ID: "T-5", ProcedureType: "Отворена постапка", EstimatedValue: mkd(9_000_000)},
		// unmapped labels are excluded, never guessed
		{ID: "T-6", ProcedureType: "нова непозната постапка", EstimatedValue: mkd(9_000_000)},
	}

	d := detectors.NewProcedureType(fakeTenders{tenders: tenders}, detectors.DefaultThresholds())
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 3)

	byTender := flagsByTender(flags)
	assert.Equal(t, 60.0, byTender["T-1"].Score)
	assert.Equal(t, domain.SeverityHigh, byTender["T-1"].Severity)
	assert.Equal(t, "negotiated_without_publication", byTender["T-1"].Evidence["procedure_canonical"])
	assert.Equal(t, 45.0, byTender["T-2"].Score)
	assert.Equal(t, 35.0, byTender["T-4"].Score)
	assert.Equal(t, domain.SeverityLow, byTender["T-4"].Severity)
	assert.NotContains(t, byTender, "T-3")
	assert.NotContains(t, byTender, "T-5")
	assert.NotContains(t, byTender, "T-6")
}
