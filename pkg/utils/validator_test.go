package utils

import "testing"

type sample struct {
	Name string `json:"name" validate:"notblank"`
	Date string `json:"date" validate:"booking_date"`
	Time string `json:"time" validate:"booking_time"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name   string
		in     sample
		fields []string
	}{
		{"valid", sample{"Sam", "2024-03-10", "09:30"}, nil},
		{"blank name", sample{"  ", "2024-03-10", "09:30"}, []string{"name"}},
		{"bad date", sample{"Sam", "2024/03/10", "09:30"}, []string{"date"}},
		{"bad time", sample{"Sam", "2024-03-10", "24:00"}, []string{"time"}},
		{"all bad", sample{"", "", "9:30"}, []string{"name", "date", "time"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(tt.in)
			if len(errs) != len(tt.fields) {
				t.Fatalf("errors = %v, want fields %v", errs, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := errs[f]; !ok {
					t.Errorf("missing error for %s in %v", f, errs)
				}
			}
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	got := FormatValidationErrors(map[string]string{
		"time": "Must be a time in HH:MM format",
		"date": "Must be a date in YYYY-MM-DD format",
	})
	want := "date: Must be a date in YYYY-MM-DD format; time: Must be a time in HH:MM format"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
