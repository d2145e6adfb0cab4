package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "PENDING", Pending.String())
	assert.Equal(t, "PROCESSING", Processing.String())
	assert.Equal(t, "COMPLETED", Completed.String())
	assert.Equal(t, "FAILED", Failed.String())
}

func TestFrom(t *testing.T) {
	assert.Equal(t, Pending, From("PENDING"))
	assert.Equal(t, Processing, From("PROCESSING"))
	assert.Equal(t, Completed, From("COMPLETED"))
	assert.Equal(t, Failed, From("FAILED"))
	assert.Equal(t, Status(0), From("olia"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(Pending))
	assert.False(t, IsTerminal(Processing))
	assert.True(t, IsTerminal(Completed))
	assert.True(t, IsTerminal(Failed))
}
