package patient

import (
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func TestAgeAt(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"birthday already passed", time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC), 36},
		{"birthday not yet", time.Date(1990, 9, 1, 0, 0, 0, 0, time.UTC), 35},
		{"birthday today", time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), 36},
		{"birthday tomorrow", time.Date(1990, 6, 16, 0, 0, 0, 0, time.UTC), 35},
		{"newborn", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Patient{DateOfBirth: tc.dob}
			if got := p.AgeAt(now); got != tc.want {
				t.Errorf("AgeAt = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBodyMassIndex(t *testing.T) {
	cases := []struct {
		name   string
		height *float64
		weight *float64
		want   *float64
	}{
		{"normal", f64(180), f64(75), f64(23.1)},
		{"rounds to one decimal", f64(170), f64(65), f64(22.5)},
		{"missing height", nil, f64(75), nil},
		{"missing weight", f64(180), nil, nil},
		{"both missing", nil, nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Patient{HeightCM: tc.height, WeightKG: tc.weight}
			got := p.BodyMassIndex()
			switch {
			case tc.want == nil && got != nil:
				t.Errorf("expected nil BMI, got %v", *got)
			case tc.want != nil && got == nil:
				t.Errorf("expected %v, got nil", *tc.want)
			case tc.want != nil && *got != *tc.want:
				t.Errorf("BMI = %v, want %v", *got, *tc.want)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	p := &Patient{
		DateOfBirth: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		HeightCM:    f64(165),
		WeightKG:    f64(60),
	}
	p.Derive(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))

	if p.Age != 26 {
		t.Errorf("Age = %d, want 26", p.Age)
	}
	if p.BMI == nil || *p.BMI != 22.0 {
		t.Errorf("BMI = %v, want 22.0", p.BMI)
	}
}
