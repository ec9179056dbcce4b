package service

import (
	"testing"
	"time"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "0 0 9 * * *"},
		{in: "20:15", want: "0 15 20 * * *"},
		{in: "0:5", want: "0 5 0 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noonish", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := buildDailySpec(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("buildDailySpec(%q) accepted, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("buildDailySpec(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("buildDailySpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDailyRejectsBadTime(t *testing.T) {
	c := NewCron(time.UTC)
	defer c.Stop()
	if _, err := c.Daily("25:00", func() {}); err == nil {
		t.Fatal("bad time accepted")
	}
	if _, err := c.Daily("06:30", func() {}); err != nil {
		t.Fatal(err)
	}
}
