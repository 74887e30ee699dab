package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

func TestGuard_CheckOrder(t *testing.T) {
	guard := NewGuard(
		WithMaxDrawdown(fixed.FromFloat64(0.2)),
		WithMaxInstrumentNotional(fixed.FromInt(50000, 0)),
		WithMaxNetExposure(fixed.FromInt(100000, 0)),
	)

	tests := []struct {
		name   string
		in     Input
		expect common.RejectReason
	}{
		{
			name: "all within limits",
			in: Input{
				Equity:                      fixed.FromInt(10000, 0),
				PeakEquity:                  fixed.FromInt(11000, 0),
				ProjectedInstrumentNotional: fixed.FromInt(20000, 0),
				ProjectedNetExposure:        fixed.FromInt(30000, 0),
			},
			expect: common.ReasonNone,
		},
		{
			name: "drawdown breach",
			in: Input{
				Equity:     fixed.FromInt(7000, 0),
				PeakEquity: fixed.FromInt(10000, 0),
			},
			expect: common.ReasonRiskDrawdown,
		},
		{
			name: "instrument cap breach",
			in: Input{
				Equity:                      fixed.FromInt(10000, 0),
				PeakEquity:                  fixed.FromInt(10000, 0),
				ProjectedInstrumentNotional: fixed.FromInt(60000, 0),
			},
			expect: common.ReasonRiskInstrumentCap,
		},
		{
			name: "net exposure breach on short side",
			in: Input{
				Equity:               fixed.FromInt(10000, 0),
				PeakEquity:           fixed.FromInt(10000, 0),
				ProjectedNetExposure: fixed.FromInt(-150000, 0),
			},
			expect: common.ReasonRiskNetExposure,
		},
		{
			name: "drawdown wins over later checks",
			in: Input{
				Equity:                      fixed.FromInt(5000, 0),
				PeakEquity:                  fixed.FromInt(10000, 0),
				ProjectedInstrumentNotional: fixed.FromInt(60000, 0),
				ProjectedNetExposure:        fixed.FromInt(150000, 0),
			},
			expect: common.ReasonRiskDrawdown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, guard.Check(tt.in))
		})
	}
}

func TestGuard_ZeroLimitsDisableChecks(t *testing.T) {
	guard := NewGuard()

	got := guard.Check(Input{
		Equity:                      fixed.One,
		PeakEquity:                  fixed.FromInt(1000000, 0),
		ProjectedInstrumentNotional: fixed.FromInt(1000000, 0),
		ProjectedNetExposure:        fixed.FromInt(1000000, 0),
	})
	assert.Equal(t, common.ReasonNone, got)
}
