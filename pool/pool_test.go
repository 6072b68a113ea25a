package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOriginValidator(t *testing.T) {
	logger := zap.NewNop()
	v := NewOriginValidator([]string{"frames.example.com", "*.cdn.example.org"})

	tests := []struct {
		url      string
		valid    bool
		hostname string
	}{
		{url: "https://frames.example.com/a.nv21", valid: true, hostname: "frames.example.com"},
		{url: "https://eu.cdn.example.org/a.nv21", valid: true, hostname: "eu.cdn.example.org"},
		{url: "https://evil.example.net/a.nv21", valid: false},
		{url: "ftp://frames.example.com/a.nv21", valid: false},
		{url: "://broken", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			valid, hostname := v.Validate(logger, tt.url)
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.hostname, hostname)
		})
	}

	// Second lookup is served from the parse cache.
	valid, _ := v.Validate(logger, "https://frames.example.com/a.nv21")
	assert.True(t, valid)
}

func TestOriginValidatorOpen(t *testing.T) {
	v := NewOriginValidator(nil)
	valid, hostname := v.Validate(zap.NewNop(), "http://anywhere.test:8080/x")
	assert.True(t, valid)
	assert.Equal(t, "anywhere.test", hostname)

	valid, _ = v.Validate(zap.NewNop(), "file:///etc/passwd")
	assert.False(t, valid)
}

func TestOriginValidatorMetricLabel(t *testing.T) {
	assert.Equal(t, OtherOrigin, NewOriginValidator(nil).MetricLabel("anywhere.test"))
	assert.Equal(t, "frames.example.com", NewOriginValidator([]string{"frames.example.com"}).MetricLabel("frames.example.com"))
}

func TestFramePool(t *testing.T) {
	p := NewFramePool(6)
	b := p.Get()
	assert.Len(t, b, 6)
	p.Put(b)
	p.Put(make([]byte, 3))
	assert.Len(t, p.Get(), 6)
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("frame")
	PutBuffer(buf)

	buf = GetBuffer()
	assert.Equal(t, 0, buf.Len())
	PutBuffer(buf)
}
