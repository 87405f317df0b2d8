package renderdev

import (
	"errors"
	"testing"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	if err := s.validate(); err != nil {
		t.Errorf("DefaultSettings().validate() = %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero width", func(s *Settings) { s.Width = 0 }},
		{"zero height", func(s *Settings) { s.Height = 0 }},
		{"zero samples", func(s *Settings) { s.SampleCount = 0 }},
		{"non power of two samples", func(s *Settings) { s.SampleCount = 3 }},
		{"zero queue capacity", func(s *Settings) { s.QueueCapacity = 0 }},
		{"negative queue capacity", func(s *Settings) { s.QueueCapacity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if err := s.validate(); !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("validate() = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestSettingsMSAAValid(t *testing.T) {
	for _, samples := range []uint32{1, 2, 4, 8} {
		s := DefaultSettings()
		s.SampleCount = samples
		if err := s.validate(); err != nil {
			t.Errorf("SampleCount=%d: validate() = %v", samples, err)
		}
	}
}
