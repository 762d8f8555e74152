package tools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buildParams = Params{
	String("androidDevice_id", "device"),
	Integer("metroPort", "port"),
	Enum("mode", "variant", "debug", "release"),
	Boolean("clean", "clean first").Or(false),
	StringList("packageNames", "packages").Opt(),
	Param{Name: "ratio", Type: TypeNumber, Optional: true},
}

func TestParams_ValidateNormalises(t *testing.T) {
	args, err := buildParams.Validate(map[string]any{
		"androidDevice_id": "emulator-5554",
		"metroPort":        float64(8081),
		"mode":             "debug",
		"packageNames":     []any{"react-native-svg"},
		"ratio":            1,
		"extra":            "dropped",
	})
	require.NoError(t, err)

	assert.Equal(t, 8081, args["metroPort"])
	assert.Equal(t, false, args["clean"])
	assert.Equal(t, 1.0, args["ratio"])
	assert.Equal(t, []string{"react-native-svg"}, args.Strings("packageNames"))
	assert.False(t, args.Has("extra"))
}

func TestParams_ValidateCollectsProblems(t *testing.T) {
	_, err := buildParams.Validate(map[string]any{
		"metroPort": 80.5,
		"mode":      "profile",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgs))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, err.Error(), `"androidDevice_id" is required`)
	assert.Contains(t, err.Error(), `"metroPort" must be an integer`)
	assert.Contains(t, err.Error(), `"mode" must be one of [debug, release]`)
}

func TestParams_ArrayItemTypes(t *testing.T) {
	p := Params{StringList("packageNames", "")}

	_, err := p.Validate(map[string]any{"packageNames": []any{"a", 2.0}})
	assert.ErrorContains(t, err, `"packageNames"[1] must be a string`)

	_, err = p.Validate(map[string]any{"packageNames": "a"})
	assert.ErrorContains(t, err, `"packageNames" must be an array`)
}

func TestParams_NullCountsAsAbsent(t *testing.T) {
	p := Params{String("search", "").Opt(), Integer("depth", "").Or(1)}

	args, err := p.Validate(map[string]any{"search": nil, "depth": nil})
	require.NoError(t, err)
	assert.False(t, args.Has("search"))
	assert.Equal(t, 1, args.Int("depth"))
}

func TestParams_JSONSchema(t *testing.T) {
	s := buildParams.JSONSchema()

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"androidDevice_id", "metroPort", "mode"}, s["required"])

	props := s["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "description": "variant", "enum": []string{"debug", "release"}}, props["mode"])
	assert.Equal(t, map[string]any{"type": "string"}, props["packageNames"].(map[string]any)["items"])
	assert.Equal(t, false, props["clean"].(map[string]any)["default"])

	empty := Params(nil).JSONSchema()
	assert.Empty(t, empty["properties"])
	assert.Empty(t, empty["required"])
}
