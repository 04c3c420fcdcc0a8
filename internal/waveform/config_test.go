package waveform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default config", cfg: DefaultConfig(), wantErr: false},
		{name: "rms method", cfg: Config{Resolution: 10, Method: MethodRMS}, wantErr: false},
		{name: "zero resolution", cfg: Config{Resolution: 0, Method: MethodPeak}, wantErr: true},
		{name: "negative resolution", cfg: Config{Resolution: -5, Method: MethodPeak}, wantErr: true},
		{name: "unknown method", cfg: Config{Resolution: 10, Method: "median"}, wantErr: true},
		{name: "empty method", cfg: Config{Resolution: 10}, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
