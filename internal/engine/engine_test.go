package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

// nopEngine satisfies Engine for registry tests.
type nopEngine struct{ name string }

func (e *nopEngine) Name() string         { return e.name }
func (e *nopEngine) Extensions() []string { return []string{".tif"} }
func (e *nopEngine) Classify(context.Context, ClassifyRequest) (string, error) {
	return "", nil
}
func (e *nopEngine) ReadAttributeTable(context.Context, string) ([]model.ClassStat, error) {
	return nil, nil
}
func (e *nopEngine) DescribeBands(context.Context, string) ([]model.Band, error) {
	return nil, nil
}
func (e *nopEngine) CopyBand(context.Context, string, model.Band, string) error { return nil }
func (e *nopEngine) Close() error                                               { return nil }

func init() {
	Register("registry-test-ok", "always opens", func(context.Context, Options) (Engine, error) {
		return &nopEngine{name: "registry-test-ok"}, nil
	})
	Register("registry-test-fail", "never opens", func(context.Context, Options) (Engine, error) {
		return nil, errors.New("daemon not reachable")
	})
}

// TestOpen verifies lookup by name, case folding and error codes.
func TestOpen(t *testing.T) {
	opts := Options{Logger: zerolog.Nop()}

	e, err := Open(context.Background(), " Registry-Test-OK ", opts)
	require.NoError(t, err)
	assert.Equal(t, "registry-test-ok", e.Name())

	_, err = Open(context.Background(), "no-such-engine", opts)
	require.Error(t, err)
	assert.Equal(t, model.ExitEngineUnavailable, model.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "registry-test-ok", "message should list available engines")

	_, err = Open(context.Background(), "registry-test-fail", opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEngineUnavailable))
	assert.Contains(t, err.Error(), "daemon not reachable")
}

// TestRegister_Duplicate verifies double registration panics.
func TestRegister_Duplicate(t *testing.T) {
	assert.Panics(t, func() {
		Register("registry-test-ok", "", func(context.Context, Options) (Engine, error) { return nil, nil })
	})
	assert.Panics(t, func() { Register("", "", nil) })
}

// TestNames verifies names are sorted.
func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "registry-test-ok")
	assert.IsIncreasing(t, names)
}

// TestValidateBand verifies band bounds.
func TestValidateBand(t *testing.T) {
	assert.NoError(t, ValidateBand(1, 1))
	assert.NoError(t, ValidateBand(3, 4))
	assert.Error(t, ValidateBand(0, 1))
	assert.Error(t, ValidateBand(2, 1))
}

// TestCheckClassRange verifies classes outside the output range fail.
func TestCheckClassRange(t *testing.T) {
	s := scheme.MustParse("0 10 1;10 20 70000")
	assert.Error(t, CheckClassRange(s, 0, 65534))
	assert.NoError(t, CheckClassRange(s, 0, 1<<31-1))
	assert.NoError(t, CheckClassRange(scheme.MustParse(scheme.DefaultText), 0, 65534))
}

// TestBandsFromDescriptions verifies default names for empty descriptions.
func TestBandsFromDescriptions(t *testing.T) {
	got := BandsFromDescriptions([]string{"band1", "", "  nir "})
	assert.Equal(t, []model.Band{
		{Index: 1, Name: "band1"},
		{Index: 2, Name: "Band_2"},
		{Index: 3, Name: "nir"},
	}, got)
	assert.Empty(t, BandsFromDescriptions(nil))
}

// TestSanitizeName verifies file-name safe band names.
func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "band1", want: "band1"},
		{in: "Band_2", want: "Band_2"},
		{in: "near infrared (NIR)", want: "near_infrared_NIR"},
		{in: "a/b\\c", want: "a_b_c"},
		{in: "..hidden", want: "hidden"},
		{in: "B8.A", want: "B8.A"},
		{in: "///", want: "band"},
		{in: "../..", want: "band"},
		{in: "", want: "band"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}
