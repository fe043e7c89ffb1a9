package cliconfig

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"SERVOLINK_WRITE_PORT":      "/dev/ttyACM0",
				"SERVOLINK_READ_PORT":       "/dev/ttyACM1",
				"SERVOLINK_BAUD_RATE":       "9600",
				"SERVOLINK_DEBOUNCE_WINDOW": "1500ms",
				"SERVOLINK_TRIGGER":         "HIT",
				"SERVOLINK_RECONNECT":       "true",
				"SERVOLINK_ANIMATE_STEP":    "5",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				WritePort:      "/dev/ttyACM0",
				ReadPort:       "/dev/ttyACM1",
				BaudRate:       9600,
				DebounceWindow: 1500 * time.Millisecond,
				Trigger:        "HIT",
				Reconnect:      true,
				AnimateStep:    5,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"SERVOLINK_WRITE_PORT": "/dev/env-write",
				"SERVOLINK_READ_PORT":  "/dev/env-read",
			},
			changed: map[string]bool{"write-port": true},
			initial: Config{WritePort: "/dev/flag-write"},
			expected: Config{
				WritePort: "/dev/flag-write",
				ReadPort:  "/dev/env-read",
			},
		},
		{
			name:     "disables exit on eof",
			envVars:  map[string]string{"SERVOLINK_EXIT_ON_EOF": "false"},
			changed:  map[string]bool{},
			initial:  Config{ExitOnEOF: true},
			expected: Config{},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"SERVOLINK_DEBOUNCE_WINDOW": "soon",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"SERVOLINK_BAUD_RATE": "fast",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.expected, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
