package gen_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkeeler/counter-rand/gen"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestConfig_Normalize(t *testing.T) {
	type testcase struct {
		config       gen.Config
		expectTarget gen.Target
		expectErr    bool
	}

	testcases := map[string]testcase{
		"distributions are mutually exclusive": {
			config: gen.Config{
				Lanes:   1,
				Uniform: &gen.UniformConfig{High: 10},
				Normal:  &gen.NormalConfig{},
			},
			expectErr: true,
		},
		"a distribution is required": {
			config:    gen.Config{Lanes: 1},
			expectErr: true,
		},
		"returns error when config.Uniform is invalid": {
			config: gen.Config{
				Lanes:   1,
				Uniform: &gen.UniformConfig{Bits: 16, High: 10},
			},
			expectErr: true,
		},
		"returns error when config.UniformFloat is invalid": {
			config: gen.Config{
				Lanes:        1,
				UniformFloat: &gen.UniformFloatConfig{Low: 2, High: 1},
			},
			expectErr: true,
		},
		"returns error when config.Normal is invalid": {
			config: gen.Config{
				Lanes:  1,
				Normal: &gen.NormalConfig{Sigma: -1},
			},
			expectErr: true,
		},
		"config.Target is set to TargetUniform when Uniform config set": {
			config: gen.Config{
				Lanes:   1,
				Uniform: &gen.UniformConfig{High: 10},
			},
			expectTarget: gen.TargetUniform,
		},
		"config.Target is set to TargetUniformFloat when UniformFloat config set": {
			config: gen.Config{
				Lanes:        1,
				UniformFloat: &gen.UniformFloatConfig{},
			},
			expectTarget: gen.TargetUniformFloat,
		},
		"config.Target is set to TargetNormal when Normal config set": {
			config: gen.Config{
				Lanes:  1,
				Normal: &gen.NormalConfig{},
			},
			expectTarget: gen.TargetNormal,
		},
		"at least one lane required": {
			config: gen.Config{
				Lanes:   0,
				Uniform: &gen.UniformConfig{High: 10},
			},
			expectErr: true,
		},
		"negative batch rejected": {
			config: gen.Config{
				Lanes:   1,
				Batch:   -1,
				Uniform: &gen.UniformConfig{High: 10},
			},
			expectErr: true,
		},
		"negative lane rate rejected": {
			config: gen.Config{
				Lanes:    1,
				LaneRate: rate.Limit(-1),
				Uniform:  &gen.UniformConfig{High: 10},
			},
			expectErr: true,
		},
		"unknown bijection rejected": {
			config: gen.Config{
				Lanes:     1,
				Bijection: "rot13",
				Uniform:   &gen.UniformConfig{High: 10},
			},
			expectErr: true,
		},
		"chacha round override rejected": {
			config: gen.Config{
				Lanes:     1,
				Bijection: gen.BijectionChaCha,
				Rounds:    8,
				Uniform:   &gen.UniformConfig{High: 10},
			},
			expectErr: true,
		},
		"unknown layout rejected": {
			config: gen.Config{
				Lanes:   1,
				Layout:  "diagonal",
				Uniform: &gen.UniformConfig{High: 10},
			},
			expectErr: true,
		},
		"oversized buffer rejected": {
			config: gen.Config{
				Lanes:   math.MaxUint64,
				Batch:   2,
				Uniform: &gen.UniformConfig{High: 10},
			},
			expectErr: true,
		},
	}
	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			if tc.expectErr {
				require.Error(t, tc.config.Normalize())
				return
			}
			require.NoError(t, tc.config.Normalize())
			require.Equal(t, tc.expectTarget, tc.config.Target)
		})
	}
}

func TestConfig_NormalizeDefaults(t *testing.T) {
	conf := gen.Config{
		Lanes:   4,
		Batch:   8,
		Uniform: &gen.UniformConfig{High: 10},
	}
	require.NoError(t, conf.Normalize())

	require.Equal(t, gen.BijectionPhilox, conf.Bijection)
	require.Equal(t, 10, conf.Rounds)
	require.Equal(t, gen.LayoutLaneMajor, conf.Layout)
	require.Equal(t, 1, conf.Passes)
	require.GreaterOrEqual(t, conf.Workers, 1)
	require.Equal(t, 64, conf.Uniform.Bits)
}

func TestConfig_NormalizeResolvesRounds(t *testing.T) {
	threefry := gen.Config{
		Lanes:     1,
		Bijection: gen.BijectionThreefry,
		Uniform:   &gen.UniformConfig{High: 10},
	}
	require.NoError(t, threefry.Normalize())
	require.Equal(t, 20, threefry.Rounds)

	chacha := gen.Config{
		Lanes:     1,
		Bijection: gen.BijectionChaCha,
		Uniform:   &gen.UniformConfig{High: 10},
	}
	require.NoError(t, chacha.Normalize())
	require.Zero(t, chacha.Rounds)
}

func TestUniformConfig_Normalize(t *testing.T) {
	type testcase struct {
		config    gen.UniformConfig
		expectErr bool
	}
	testcases := map[string]testcase{
		"High must be greater than Low": {
			config:    gen.UniformConfig{Low: 10, High: 10},
			expectErr: true,
		},
		"Bits must be 32 or 64": {
			config:    gen.UniformConfig{Bits: 16, High: 10},
			expectErr: true,
		},
		"32 bit bounds must fit": {
			config:    gen.UniformConfig{Bits: 32, High: uint64(math.MaxUint32) + 1},
			expectErr: true,
		},
		"valid 32 bit": {
			config: gen.UniformConfig{Bits: 32, High: math.MaxUint32},
		},
		"valid": {
			config: gen.UniformConfig{Low: 5, High: 50},
		},
	}
	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			if tc.expectErr {
				require.Error(t, tc.config.Normalize())
				return
			}
			require.NoError(t, tc.config.Normalize())
		})
	}
}

func TestUniformFloatConfig_Normalize(t *testing.T) {
	type testcase struct {
		config    gen.UniformFloatConfig
		expectErr bool
	}
	testcases := map[string]testcase{
		"High must be greater than Low": {
			config:    gen.UniformFloatConfig{Low: 1, High: 1},
			expectErr: true,
		},
		"bounds must be finite": {
			config:    gen.UniformFloatConfig{Low: math.Inf(-1), High: 0},
			expectErr: true,
		},
		"nan bound rejected": {
			config:    gen.UniformFloatConfig{Low: 0, High: math.NaN()},
			expectErr: true,
		},
		"Bits must be 32 or 64": {
			config:    gen.UniformFloatConfig{Bits: 8, High: 1},
			expectErr: true,
		},
		"valid": {
			config: gen.UniformFloatConfig{Low: -2.5, High: 7.5},
		},
	}
	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			if tc.expectErr {
				require.Error(t, tc.config.Normalize())
				return
			}
			require.NoError(t, tc.config.Normalize())
		})
	}

	t.Run("empty range defaults to the unit interval", func(t *testing.T) {
		conf := gen.UniformFloatConfig{}
		require.NoError(t, conf.Normalize())
		require.Equal(t, 0.0, conf.Low)
		require.Equal(t, 1.0, conf.High)
		require.Equal(t, 64, conf.Bits)
	})
}

func TestNormalConfig_Normalize(t *testing.T) {
	type testcase struct {
		config    gen.NormalConfig
		expectErr bool
	}
	testcases := map[string]testcase{
		"negative Sigma rejected": {
			config:    gen.NormalConfig{Sigma: -0.5},
			expectErr: true,
		},
		"Mean must be finite": {
			config:    gen.NormalConfig{Mean: math.Inf(1), Sigma: 1},
			expectErr: true,
		},
		"nan Sigma rejected": {
			config:    gen.NormalConfig{Sigma: math.NaN()},
			expectErr: true,
		},
		"valid": {
			config: gen.NormalConfig{Mean: 5, Sigma: 2},
		},
	}
	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			if tc.expectErr {
				require.Error(t, tc.config.Normalize())
				return
			}
			require.NoError(t, tc.config.Normalize())
		})
	}

	t.Run("zero Sigma defaults to standard", func(t *testing.T) {
		conf := gen.NormalConfig{}
		require.NoError(t, conf.Normalize())
		require.Equal(t, 1.0, conf.Sigma)
	})
}

func TestTarget_String(t *testing.T) {
	require.Equal(t, "uniform", gen.TargetUniform.String())
	require.Equal(t, "uniform-float", gen.TargetUniformFloat.String())
	require.Equal(t, "normal", gen.TargetNormal.String())
	require.Equal(t, "", gen.Target(99).String())
}

func TestConfig_StreamName(t *testing.T) {
	explicit := gen.Config{
		Lanes:     4,
		Rounds:    10,
		Uniform:   &gen.UniformConfig{High: 10},
		Bijection: gen.BijectionPhilox,
	}
	require.NoError(t, explicit.Normalize())

	implicit := gen.Config{
		Lanes:   4,
		Uniform: &gen.UniformConfig{High: 10},
	}
	require.NoError(t, implicit.Normalize())

	// The default round count and an explicit matching one name the
	// same streams.
	require.Equal(t, explicit.StreamName(9), implicit.StreamName(9))
	require.Equal(t, "uniform/philox-10/seed-9/lanes-4", implicit.StreamName(9))

	chacha := gen.Config{
		Lanes:     4,
		Bijection: gen.BijectionChaCha,
		Uniform:   &gen.UniformConfig{High: 10},
	}
	require.NoError(t, chacha.Normalize())
	require.Equal(t, "uniform/chacha/seed-9/lanes-4", chacha.StreamName(9))
}

func TestReadConfig(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"Lanes": 4,
			"Batch": 8,
			"Uniform": {"Low": 5, "High": 50}
		}`), 0o644))

		conf, err := gen.ReadConfig(path)
		require.NoError(t, err)
		require.Equal(t, gen.TargetUniform, conf.Target)
		require.EqualValues(t, 4, conf.Lanes)
		require.Equal(t, 8, conf.Batch)
		require.Equal(t, gen.BijectionPhilox, conf.Bijection)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := gen.ReadConfig(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Lanes": `), 0o644))

		_, err := gen.ReadConfig(path)
		require.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Lanes": 4}`), 0o644))

		_, err := gen.ReadConfig(path)
		require.Error(t, err)
	})
}
