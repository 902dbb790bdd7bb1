package http

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptions(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, ":3001", o.Addr)
	assert.Empty(t, o.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr int
	}{
		{"empty addr", func(o *Options) { o.Addr = "" }, 1},
		{"zero timeouts", func(o *Options) {
			o.ReadTimeout = 0
			o.WriteTimeout = 0
			o.RequestTimeout = 0
			o.ShutdownTimeout = 0
		}, 4},
		{"request longer than write", func(o *Options) { o.RequestTimeout = time.Minute }, 1},
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

	require.NoError(t, fs.Parse([]string{"--http.addr=:8080", "--http.request-timeout=5s"}))
	assert.Equal(t, ":8080", o.Addr)
	assert.Equal(t, 5*time.Second, o.RequestTimeout)
}
