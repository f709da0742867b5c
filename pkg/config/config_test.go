package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials_AllPresent(t *testing.T) {
	cfg := &AdobeConfig{
		APIKey:           "api-key",
		ClientSecret:     "secret",
		GDPRAPIKey:       "gdpr-key",
		GDPRClientSecret: "gdpr-secret",
		Scopes:           "openid",
		IMSOrg:           "org@AdobeOrg",
		SandboxName:      "prod",
		DatasetID:        "ds-1",
	}

	assert.NoError(t, cfg.ValidateCredentials())
}

func TestValidateCredentials_ReportsEveryMissingVariable(t *testing.T) {
	cfg := &AdobeConfig{
		APIKey:      "api-key",
		Scopes:      "openid",
		IMSOrg:      "org@AdobeOrg",
		SandboxName: "prod",
	}

	err := cfg.ValidateCredentials()
	require.Error(t, err)

	// Every absent variable is named, not just the first.
	assert.Contains(t, err.Error(), "CLIENT_SECRET")
	assert.Contains(t, err.Error(), "DATASET_ID")
	assert.Contains(t, err.Error(), "GDPR_CLIENT_SECRET")
	assert.Contains(t, err.Error(), "GDPR_API_KEY")
	assert.NotContains(t, err.Error(), "SANDBOX_NAME")
}

func TestLoadAdobeConfig_Defaults(t *testing.T) {
	t.Setenv("IMS_TOKEN_URL", "")

	cfg := LoadAdobeConfig()
	assert.Equal(t, "https://ims-na1.adobelogin.com/ims/token/v3", cfg.TokenURL)
}

func TestConfigValidate(t *testing.T) {
	valid := &Config{
		Warehouse:        &WarehouseConfig{},
		ProfileStore:     &ProfileStoreConfig{},
		Adobe:            &AdobeConfig{},
		ChunkSize:        800,
		AutoRunThreshold: 1000,
		PageSize:         1000,
		TablePrefix:      "custanwo.customer_transformation",
	}
	assert.NoError(t, valid.Validate())

	noChunk := *valid
	noChunk.ChunkSize = 0
	assert.Error(t, noChunk.Validate())

	noThreshold := *valid
	noThreshold.AutoRunThreshold = 0
	assert.Error(t, noThreshold.Validate())

	noPrefix := *valid
	noPrefix.TablePrefix = ""
	assert.Error(t, noPrefix.Validate())
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "42")
	assert.Equal(t, 42, getEnvAsInt("TEST_INT_VAR", 7))

	t.Setenv("TEST_INT_VAR", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("TEST_INT_VAR", 7))

	assert.Equal(t, 7, getEnvAsInt("TEST_INT_VAR_UNSET", 7))
}
