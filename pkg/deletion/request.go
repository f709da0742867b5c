// pkg/deletion/request.go
package deletion

// Privacy API request schema. Field names follow the external API's JSON
// contract exactly.

const (
	actionDelete    = "delete"
	identityType    = "custom"
	spidNamespace   = "SPID"
	regulationGDPR  = "gdpr"
	orgNamespace    = "imsOrgID"
)

// includeCapabilities is the fixed capability list every deletion request carries.
var includeCapabilities = []string{"profileService", "aepDataLake", "identity"}

// UserID is a single identity attribute of a user to delete
type UserID struct {
	Namespace string `json:"namespace"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// User is one deletion subject. Action and UserIDs are lists because a key
// appearing more than once in a chunk accumulates its identity attributes.
type User struct {
	Key     string   `json:"key"`
	Action  []string `json:"action"`
	UserIDs []UserID `json:"userIDs"`
}

// CompanyContext identifies the organization the request executes under
type CompanyContext struct {
	Namespace string `json:"namespace"`
	Value     string `json:"value"`
}

// Request is the privacy API request envelope
type Request struct {
	CompanyContexts []CompanyContext `json:"companyContexts"`
	Users           []User           `json:"users"`
	Include         []string         `json:"include"`
	Regulation      string           `json:"regulation"`
}

// Job is one accepted deletion job in the API response
type Job struct {
	JobID    string `json:"jobId"`
	Customer struct {
		User struct {
			Key string `json:"key"`
		} `json:"user"`
	} `json:"customer"`
}

// Response is the privacy API's accepted (202) response body
type Response struct {
	RequestID    string `json:"requestId"`
	TotalRecords int    `json:"totalRecords"`
	Jobs         []Job  `json:"jobs"`
}

// BuildUsers converts a chunk of profile IDs into the API's user records.
// Duplicate keys within a chunk are grouped: actions and identity attributes
// accumulate into lists instead of producing repeated user entries.
func BuildUsers(keys []string) []User {
	byKey := make(map[string]int, len(keys))
	users := make([]User, 0, len(keys))

	for _, key := range keys {
		if key == "" {
			continue
		}

		id := UserID{
			Namespace: spidNamespace,
			Value:     key,
			Type:      identityType,
		}

		if idx, seen := byKey[key]; seen {
			users[idx].Action = append(users[idx].Action, actionDelete)
			users[idx].UserIDs = append(users[idx].UserIDs, id)
			continue
		}

		byKey[key] = len(users)
		users = append(users, User{
			Key:     key,
			Action:  []string{actionDelete},
			UserIDs: []UserID{id},
		})
	}

	return users
}

// NewRequest wraps user records into the request envelope for the given org
func NewRequest(imsOrg string, users []User) Request {
	return Request{
		CompanyContexts: []CompanyContext{
			{Namespace: orgNamespace, Value: imsOrg},
		},
		Users:      users,
		Include:    includeCapabilities,
		Regulation: regulationGDPR,
	}
}
