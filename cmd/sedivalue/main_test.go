package main

import (
	"testing"

	"github.com/TobiSchelling/SediValue/internal/config"
)

func TestApplyDoseAddsToSet(t *testing.T) {
	c := config.Default()
	applyDose(c, 30)
	if c.Reuse.ReferenceDose != 30 {
		t.Errorf("expected reference dose 30, got %g", c.Reuse.ReferenceDose)
	}
	if got := c.Reuse.Doses[len(c.Reuse.Doses)-1]; got != 30 {
		t.Errorf("expected 30 appended to doses, got %v", c.Reuse.Doses)
	}
}

func TestApplyDoseKeepsExisting(t *testing.T) {
	c := config.Default()
	n := len(c.Reuse.Doses)
	applyDose(c, 50)
	if len(c.Reuse.Doses) != n {
		t.Errorf("expected %d doses, got %v", n, c.Reuse.Doses)
	}
}
