package jwt

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr int
	}{
		{"valid", func(o *Options) { o.Key = strings.Repeat("k", 32) }, 0},
		{"missing key", func(o *Options) {}, 1},
		{"short key", func(o *Options) { o.Key = "short" }, 1},
		{"long key", func(o *Options) { o.Key = strings.Repeat("k", MaxKeyLength+1) }, 1},
		{"rsa not supported", func(o *Options) {
			o.Key = strings.Repeat("k", 32)
			o.SigningMethod = "RS256"
		}, 1},
		{"negative leeway", func(o *Options) {
			o.Key = strings.Repeat("k", 32)
			o.Leeway = -1
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			assert.Len(t, o.Validate(), tt.wantErr)
		})
	}
}

func TestAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--jwt.key=abc", "--jwt.audience=a,b"}))
	assert.Equal(t, "abc", o.Key)
	assert.Equal(t, []string{"a", "b"}, o.Audience)
}

func TestComplete(t *testing.T) {
	o := &Options{}
	require.NoError(t, o.Complete())
	assert.Equal(t, DefaultSigningMethod, o.SigningMethod)
	assert.Equal(t, DefaultExpired, o.Expired)
}
