package main

import (
	"testing"
	"time"
)

func TestTimeParserParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		zone    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "rfc3339",
			input: "2026-03-01T09:00:00+02:00",
			want:  time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
		},
		{
			name:  "date and clock in utc",
			input: "2026-03-01 09:00",
			want:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "date and clock in zone",
			zone:  "America/New_York",
			input: "2026-03-01 09:00",
			want:  time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "relative",
			input: "in 2 hours",
			want:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty",
			input:   "  ",
			wantErr: true,
		},
		{
			name:    "gibberish",
			input:   "whenever",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newTimeParser(tt.zone)
			if err != nil {
				t.Fatalf("newTimeParser() error = %v", err)
			}
			got, err := p.Parse(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTimeParserRejectsUnknownZone(t *testing.T) {
	if _, err := newTimeParser("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
