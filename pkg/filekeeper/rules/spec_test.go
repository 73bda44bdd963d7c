package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSpecs(t *testing.T) {
	t.Parallel()

	specs := []Spec{
		{Category: "Invoices", Pattern: `(?i)^invoice`, Priority: 10},
		{Category: "Backups", Extensions: []string{"bak", ".old"}, Priority: 5},
	}

	custom, err := FromSpecs(specs)
	require.NoError(t, err)
	require.Len(t, custom, 2)

	c := NewCategorizer(custom...)
	assert.Equal(t, "Invoices", c.Categorize(entry("Invoice-2024.pdf")))
	assert.Equal(t, "Backups", c.Categorize(entry("data.bak")))
	assert.Equal(t, "Documents", c.Categorize(entry("report.pdf")))
}

func TestFromSpecs_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		specs []Spec
	}{
		{"bad regex", []Spec{{Category: "X", Pattern: "("}}},
		{"empty category", []Spec{{Pattern: "a"}}},
		{"no matcher", []Spec{{Category: "X"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FromSpecs(tt.specs)
			assert.Error(t, err)
		})
	}
}
