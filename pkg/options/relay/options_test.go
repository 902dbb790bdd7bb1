package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledOptions() *Options {
	o := NewOptions()
	o.Enabled = true
	o.AccountSID = "AC123"
	o.AuthToken = "token"
	o.From = "whatsapp:+14155238886"
	return o
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr int
	}{
		{"disabled skips checks", func(o *Options) { *o = *NewOptions() }, 0},
		{"valid", func(*Options) {}, 0},
		{"bare number", func(o *Options) { o.From = "+14155238886" }, 0},
		{"missing credentials", func(o *Options) { o.AccountSID, o.AuthToken = "", "" }, 2},
		{"malformed from", func(o *Options) { o.From = "whatsapp:sandbox" }, 1},
		{"wait shorter than timeout", func(o *Options) { o.Wait = time.Second }, 1},
		{"no pool", func(o *Options) { o.PoolSize = 0 }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := enabledOptions()
			tt.mutate(o)
			assert.Len(t, o.Validate(), tt.wantErr)
		})
	}
}

func TestComplete(t *testing.T) {
	o := &Options{Timeout: 5 * time.Second}
	require.NoError(t, o.Complete())
	assert.Equal(t, "https://api.twilio.com", o.BaseURL)
	assert.Equal(t, 5*time.Second, o.Wait)
}
