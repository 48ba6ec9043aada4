package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	for _, c := range []struct {
		hardMasked bool
		keywords   []string
		accepted   []string
		arch       string
		want       Stability
	}{
		{false, []string{"x86"}, nil, "x86", Stable},
		{false, []string{"~x86"}, nil, "x86", Masked},
		{true, []string{"x86"}, nil, "x86", HardMasked},
		{true, nil, []string{"*"}, "x86", HardMasked},
		{false, []string{"ppc"}, nil, "x86", NotAvailable},
		{false, nil, nil, "x86", NotAvailable},
		{false, []string{"x86"}, nil, "~x86", Stable},
		{false, []string{"~x86"}, []string{"~x86"}, "x86", Stable},
		{false, []string{"~x86"}, []string{"~*"}, "x86", Stable},
		{false, []string{"x86"}, []string{"~x86"}, "x86", Stable},
		{false, []string{"~ppc"}, []string{"~x86"}, "x86", NotAvailable},
		{false, []string{"x86"}, []string{"-x86"}, "x86", NotAvailable},
		{false, []string{"~x86"}, []string{"-x86"}, "x86", Masked},
		{false, []string{"x86"}, []string{"*"}, "x86", Stable},
		{false, []string{"~x86"}, []string{"-*", "~x86"}, "x86", NotAvailable},
		{false, []string{"~x86"}, []string{"~x86", "-*"}, "x86", Stable},
	} {
		got := Evaluate(c.hardMasked, c.keywords, c.accepted, c.arch)
		if got != c.want {
			t.Errorf("Evaluate(%v, %v, %v, %s) = %v, want %v", c.hardMasked, c.keywords, c.accepted, c.arch, got, c.want)
		}
		assert.Equal(t, got, Evaluate(c.hardMasked, c.keywords, c.accepted, c.arch))
	}
}

func TestStabilityString(t *testing.T) {
	assert.Equal(t, "stable", Stable.String())
	assert.Equal(t, "masked", Masked.String())
	assert.Equal(t, "hardmasked", HardMasked.String())
	assert.Equal(t, "notavailable", NotAvailable.String())
}
