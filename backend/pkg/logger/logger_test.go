package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_FallbackBeforeInit(t *testing.T) {
	Logger = nil
	assert.NotNil(t, Get())
}

func TestInit_Environments(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			require.NoError(t, Init(env))
			require.NotNil(t, Logger)
			assert.Same(t, Logger, Get())
			Sync()
		})
	}
	Logger = nil
}

func TestNamed(t *testing.T) {
	Logger = nil
	assert.NotNil(t, Named("engine"))
}
