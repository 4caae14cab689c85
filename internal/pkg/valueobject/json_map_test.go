package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapScan(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    JSONMap
		wantErr bool
	}{
		{name: "nil", in: nil, want: JSONMap{}},
		{name: "bytes", in: []byte(`{"attempt":2,"provider":"smtp"}`), want: JSONMap{"attempt": float64(2), "provider": "smtp"}},
		{name: "string", in: `{"a":"b"}`, want: JSONMap{"a": "b"}},
		{name: "decoded map", in: map[string]any{"a": 1}, want: JSONMap{"a": 1}},
		{name: "wrong type", in: 12, wantErr: true},
		{name: "bad json", in: []byte(`{`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got JSONMap
			err := got.Scan(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONMapAccessors(t *testing.T) {
	m := JSONMap{}
	m.Set("provider", "resend")
	m.Set("attempt", float64(3))

	assert.Equal(t, "resend", m.GetString("provider"))
	assert.Equal(t, 3, m.GetInt("attempt"))
	assert.Empty(t, m.GetString("attempt"))
	assert.Zero(t, m.GetInt("missing"))

	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}
