// pkg/config/adobe.go
package config

import (
	"fmt"
	"os"
	"strings"
)

// AdobeConfig holds Adobe IMS and Privacy Service credentials. Two
// client-credential pairs are carried: one scoped to profile store queries,
// one scoped to GDPR deletion execution. Both share the same scope string.
type AdobeConfig struct {
	APIKey           string // profile-query client ID
	ClientSecret     string // profile-query client secret
	GDPRAPIKey       string // deletion-execution client ID
	GDPRClientSecret string // deletion-execution client secret
	Scopes           string
	IMSOrg           string
	SandboxName      string
	DatasetID        string
	TokenURL         string
	PrivacyEndpoint  string
	SnapshotDataset  string // profile snapshot dataset table referenced by the second query
}

// LoadAdobeConfig reads IMS credentials from the environment. Missing values
// are not an error at load time; ValidateCredentials reports them all at once
// before any token exchange is attempted.
func LoadAdobeConfig() *AdobeConfig {
	return &AdobeConfig{
		APIKey:           os.Getenv("API_KEY"),
		ClientSecret:     os.Getenv("CLIENT_SECRET"),
		GDPRAPIKey:       os.Getenv("GDPR_API_KEY"),
		GDPRClientSecret: os.Getenv("GDPR_CLIENT_SECRET"),
		Scopes:           os.Getenv("SCOPES"),
		IMSOrg:           os.Getenv("IMS_ORG"),
		SandboxName:      os.Getenv("SANDBOX_NAME"),
		DatasetID:        os.Getenv("DATASET_ID"),
		TokenURL:         getEnv("IMS_TOKEN_URL", "https://ims-na1.adobelogin.com/ims/token/v3"),
		PrivacyEndpoint:  os.Getenv("PRIVACY_END_POINT"),
		SnapshotDataset:  os.Getenv("PROFILE_SNAPSHOT_DATASET"),
	}
}

// ValidateCredentials checks that every required credential is present and
// reports all missing variables in a single error rather than the first one.
func (c *AdobeConfig) ValidateCredentials() error {
	required := []struct {
		name  string
		value string
	}{
		{"CLIENT_SECRET", c.ClientSecret},
		{"API_KEY", c.APIKey},
		{"SCOPES", c.Scopes},
		{"DATASET_ID", c.DatasetID},
		{"IMS_ORG", c.IMSOrg},
		{"SANDBOX_NAME", c.SandboxName},
		{"GDPR_CLIENT_SECRET", c.GDPRClientSecret},
		{"GDPR_API_KEY", c.GDPRAPIKey},
	}

	var missing []string
	for _, v := range required {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}
