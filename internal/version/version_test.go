package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	saved := Version
	defer func() { Version = saved }()

	Version = "1.2.3"
	assert.Equal(t, "1.2.3", Get())
	assert.Contains(t, String(), "1.2.3 (commit ")

	Version = ""
	assert.Equal(t, "dev", Get())
}
