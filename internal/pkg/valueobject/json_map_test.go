package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_Value(t *testing.T) {
	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)

	v, err = JSONMap{"ttl_minutes": 5}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ttl_minutes":5}`, string(v.([]byte)))
}

func TestJSONMap_Scan(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    JSONMap
		wantErr error
	}{
		{name: "nil", input: nil, want: JSONMap{}},
		{name: "bytes", input: []byte(`{"name":"Asha","ttl_minutes":5}`), want: JSONMap{"name": "Asha", "ttl_minutes": float64(5)}},
		{name: "string", input: `{"a":true}`, want: JSONMap{"a": true}},
		{name: "decoded map", input: map[string]any{"a": "b"}, want: JSONMap{"a": "b"}},
		{name: "unsupported", input: 42, wantErr: ErrScanValueNotBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got JSONMap
			err := got.Scan(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
