package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent_Defaults(t *testing.T) {
	build := Current()
	assert.NotEmpty(t, build.Version)
	assert.NotEmpty(t, build.Commit)
	assert.NotEmpty(t, build.Date)
}

func TestBuild_StringAndFields(t *testing.T) {
	build := Build{Version: "1.2.0", Commit: "abc123", Date: "2024-06-01"}

	assert.Equal(t, "version=1.2.0 commit=abc123 date=2024-06-01", build.String())
	fields := build.Fields()
	assert.Equal(t, "1.2.0", fields["version"])
	assert.Equal(t, "abc123", fields["commit"])
	assert.Equal(t, "2024-06-01", fields["built"])
}
