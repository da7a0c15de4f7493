package common

// UserInfoResponse represents the authenticated user's information
type UserInfoResponse struct {
	Name string `json:"name"` // Username (from API key)
	Role string `json:"role"` // User role
}

// VersionResponse reports the running API version
type VersionResponse struct {
	Version string `json:"version"`
	APIID   string `json:"apiId,omitempty"`
}
