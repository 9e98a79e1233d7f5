package navigation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallback_EncodeParse(t *testing.T) {
	tests := []struct {
		name string
		cb   Callback
		want string
	}{
		{"main", Callback{Action: ActionMain}, "m"},
		{"noop", Callback{Action: ActionNoop}, "x"},
		{"groups", Callback{Action: ActionGroups, Page: 3}, "g:3"},
		{"series", Callback{Action: ActionSeries, Token: "AbC-_123xyz0"}, "s:AbC-_123xyz0"},
		{"check", Callback{Action: ActionCheck, Token: "AbC-_123xyz0"}, "c:AbC-_123xyz0"},
		{"back", Callback{Action: ActionBack, Token: "AbC-_123xyz0"}, "b:AbC-_123xyz0"},
		{"resolution", Callback{Action: ActionResolution, Token: "AbC-_123xyz0", Resolution: "720p", Page: 2}, "r:AbC-_123xyz0:720p:2"},
		{"download", Callback{Action: ActionDownload, Token: "AbC-_123xyz0", Resolution: "1080p"}, "d:AbC-_123xyz0:1080p"},
		{"file", Callback{Action: ActionFile, FileID: 991}, "f:991"},
		{"help", Callback{Action: ActionHelp}, "h"},
		{"search", Callback{Action: ActionSearch}, "q"},
		{"stats", Callback{Action: ActionStats}, "t"},
		{"admin panel", Callback{Action: ActionAdmin, Op: AdminPanel}, "a:p"},
		{"admin cleanup", Callback{Action: ActionAdmin, Op: AdminCleanup}, "a:c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cb.Encode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxCallbackBytes)

			back, err := Parse(got)
			require.NoError(t, err)
			assert.Equal(t, tt.cb, back)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{
		"",
		"z",
		"g",
		"g:-1",
		"g:abc",
		"s:",
		"s:bad token!",
		"r:AbC-_123xyz0:720p",
		"r:AbC-_123xyz0:72 0p:0",
		"r:AbC-_123xyz0:720p:x",
		"d:AbC-_123xyz0:a:b",
		"f:0",
		"f:-3",
		"f:abc",
		"m:extra",
		"a",
		"a:z",
		"h:1",
	} {
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrMalformedToken, "data %q", data)
	}
}

func TestParse_TooLong(t *testing.T) {
	_, err := Parse("s:" + strings.Repeat("a", 70))
	assert.ErrorIs(t, err, ErrTokenTooLong)
}

func TestEncode_TooLong(t *testing.T) {
	_, err := Callback{Action: ActionSeries, Token: strings.Repeat("a", 80)}.Encode()
	assert.ErrorIs(t, err, ErrTokenTooLong)
}

func TestEncode_UnknownAction(t *testing.T) {
	_, err := Callback{Action: "z"}.Encode()
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestValidResolution(t *testing.T) {
	assert.True(t, ValidResolution("720p"))
	assert.True(t, ValidResolution("4K"))
	assert.False(t, ValidResolution(""))
	assert.False(t, ValidResolution("720:p"))
	assert.False(t, ValidResolution(strings.Repeat("9", 17)))
}
