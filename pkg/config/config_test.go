package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, kv map[string]string, fn func()) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
	fn()
}

func TestLoad_AppliesDefaultsAndRequiredFields(t *testing.T) {
	os.Clearenv()
	withEnv(t, map[string]string{
		"OPENAI_API_KEY":          "sk-test",
		"EXTERNAL_DATA_BASE_URL": "https://data.internal",
	}, func() {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.ServicePort)
		assert.Equal(t, "openai", cfg.ModelProvider)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, "memory", cfg.ConversationStoreType)
		assert.Equal(t, 10, cfg.MaxToolCalls)
	})
}

func TestLoad_MissingAPIKeyFails(t *testing.T) {
	os.Clearenv()
	withEnv(t, map[string]string{"EXTERNAL_DATA_BASE_URL": "https://data.internal"}, func() {
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoad_InvalidStoreTypeFails(t *testing.T) {
	os.Clearenv()
	withEnv(t, map[string]string{
		"OPENAI_API_KEY":          "sk-test",
		"EXTERNAL_DATA_BASE_URL": "https://data.internal",
		"CONVERSATION_STORE_TYPE": "postgres",
	}, func() {
		_, err := Load()
		assert.Error(t, err)
	})
}
