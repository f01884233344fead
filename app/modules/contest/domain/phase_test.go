package contestdomain

import (
	"testing"
	"time"
)

func TestPhaseBoundaries(t *testing.T) {
	lead := 24 * time.Hour
	c := &Contest{BeginAt: begin, EndAt: begin.Add(2 * time.Hour)}

	tests := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"well before", begin.Add(-48 * time.Hour), PhaseNew},
		{"just before lead", begin.Add(-lead - time.Second), PhaseNew},
		{"lead reached", begin.Add(-lead), PhaseUpcoming},
		{"one second before begin", begin.Add(-time.Second), PhaseUpcoming},
		{"begin", begin, PhaseOngoing},
		{"one second before end", c.EndAt.Add(-time.Second), PhaseOngoing},
		{"end", c.EndAt, PhaseDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusText(c, lead, tt.now); got != tt.want {
				t.Errorf("StatusText = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPhasesPartitionTime(t *testing.T) {
	lead := time.Hour
	c := &Contest{BeginAt: begin, EndAt: begin.Add(time.Hour)}
	for now := begin.Add(-3 * time.Hour); now.Before(begin.Add(3 * time.Hour)); now = now.Add(time.Second * 30) {
		coarse := 0
		for _, b := range []bool{IsNotStarted(c, now), IsOngoing(c, now), IsDone(c, now)} {
			if b {
				coarse++
			}
		}
		if coarse != 1 {
			t.Fatalf("at %s %d of notStarted/ongoing/done hold", now, coarse)
		}
		if IsNotStarted(c, now) && IsNew(c, lead, now) == IsUpcoming(c, lead, now) {
			t.Fatalf("at %s new and upcoming overlap or leave a gap", now)
		}
	}
}

func TestIsExtended(t *testing.T) {
	c := homeworkContest()
	if IsExtended(c, c.PenaltySince.Add(-time.Second)) {
		t.Error("extended before penaltySince")
	}
	if !IsExtended(c, *c.PenaltySince) {
		t.Error("not extended at penaltySince")
	}
	if got := StatusText(c, 0, c.PenaltySince.Add(time.Hour)); got != PhaseExtended {
		t.Errorf("StatusText = %s, want Extended", got)
	}
	if IsExtended(c, c.EndAt) {
		t.Error("extended after end")
	}
	if IsExtended(acmContest(), begin.Add(time.Hour)) {
		t.Error("contest without penaltySince reported extended")
	}
}
