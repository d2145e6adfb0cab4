package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    map[string]string
		wantErr bool
	}{
		{name: "plain", text: `{"a":"olia"}`, want: map[string]string{"a": "olia"}},
		{name: "surrounded", text: "Here is the JSON:\n```json\n{\"a\":\"olia\"}\n```\nDone.",
			want: map[string]string{"a": "olia"}},
		{name: "null value", text: `{"a":null}`, want: map[string]string{"a": ""}},
		{name: "non string value", text: `{"a":10}`, want: map[string]string{"a": "10"}},
		{name: "no object", text: "no json here", wantErr: true},
		{name: "empty", text: "", wantErr: true},
		{name: "broken", text: `{"a":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.text)
			if tt.wantErr {
				require.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
