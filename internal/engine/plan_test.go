package engine

import (
	"strings"
	"testing"
	"time"
)

func TestPlan_Low(t *testing.T) {
	p := NewPlanner().Plan(BandLow, HeartFailure)
	if p.Channel != "Portal / Email" {
		t.Errorf("expected Portal / Email, got %q", p.Channel)
	}
	labels := p.ScheduleLabels()
	if len(labels) != 1 || labels[0] != "14 days" {
		t.Errorf("expected [14 days], got %v", labels)
	}
}

func TestPlan_High(t *testing.T) {
	p := NewPlanner().Plan(BandHigh, Diabetes)
	if p.Channel != ChannelHigh {
		t.Errorf("expected %q, got %q", ChannelHigh, p.Channel)
	}
	want := []time.Duration{48 * time.Hour, 7 * 24 * time.Hour, 14 * 24 * time.Hour}
	if len(p.Schedule) != len(want) {
		t.Fatalf("expected %d contacts, got %d", len(want), len(p.Schedule))
	}
	for i, d := range want {
		if p.Schedule[i].After != d {
			t.Errorf("contact %d: expected %v, got %v", i, d, p.Schedule[i].After)
		}
	}
	next, ok := p.NextVisit()
	if !ok || next.Label != "48 hours" {
		t.Errorf("expected next visit 48 hours, got %v", next)
	}
	if !strings.HasPrefix(p.Rationale, "High risk Diabetes patient.") {
		t.Errorf("unexpected rationale %q", p.Rationale)
	}
}

func TestPlan_Medium(t *testing.T) {
	p := NewPlanner().Plan(BandMedium, HeartFailure)
	if p.Channel != "SMS + App" {
		t.Errorf("expected SMS + App, got %q", p.Channel)
	}
	if got := strings.Join(p.ScheduleLabels(), ","); got != "5 days,14 days" {
		t.Errorf("unexpected schedule %s", got)
	}
}

func TestPlan_UnknownBandIsLow(t *testing.T) {
	p := NewPlanner().Plan(RiskBand("Critical"), HeartFailure)
	if p.RiskBand != BandLow || p.Channel != ChannelLow {
		t.Errorf("expected low plan, got %+v", p)
	}
}

func TestPlan_ScheduleNotShared(t *testing.T) {
	pl := NewPlanner()
	a := pl.Plan(BandHigh, HeartFailure)
	a.Schedule[0].Label = "changed"
	b := pl.Plan(BandHigh, HeartFailure)
	if b.Schedule[0].Label != "48 hours" {
		t.Error("plan schedules must not share storage")
	}
}
