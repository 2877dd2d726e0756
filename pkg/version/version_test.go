package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTrimsEmbeddedVersion(t *testing.T) {
	assert.Equal(t, strings.TrimSpace(Version), Get())
	assert.NotContains(t, Get(), "\n")
}

func TestVersionNotEmptyAndPrefixed(t *testing.T) {
	s := Get()
	if assert.NotEmpty(t, s) {
		assert.Equal(t, byte('v'), s[0])
	}
}

func TestString(t *testing.T) {
	s := String("contentd")
	assert.True(t, strings.HasPrefix(s, "contentd version "+Get()))
	assert.Contains(t, s, runtime.GOOS+"/"+runtime.GOARCH)
}
