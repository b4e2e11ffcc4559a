package models

// StatusResponse represents node status response
type StatusResponse struct {
	Status        string `json:"status"`
	IsLeader      bool   `json:"is_leader"`
	CurrentLeader string `json:"current_leader,omitempty"`
	Term          uint64 `json:"term"`
	OnlineCount   int    `json:"online_count"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RegisterResponse represents registration response
type RegisterResponse struct {
	Status   string `json:"status"`
	RecordID string `json:"record_id"`
}

// HeartbeatResponse represents heartbeat acknowledgement
type HeartbeatResponse struct {
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}

// UserResponse represents a registered identity
type UserResponse struct {
	Username     string   `json:"username"`
	Addr         string   `json:"addr"`
	RegisteredAt string   `json:"registered_at"`
	SampleImages []string `json:"sample_images,omitempty"`
}

// UserListResponse represents the durable identity set
type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// OnlineUserResponse represents one currently-online peer
type OnlineUserResponse struct {
	Username     string   `json:"username"`
	Addr         string   `json:"addr"`
	LastSeen     string   `json:"last_seen"`
	Registered   bool     `json:"registered"`
	SampleImages []string `json:"sample_images,omitempty"`
}

// DiscoveryResponse represents the TTL-filtered online set
type DiscoveryResponse struct {
	Online []OnlineUserResponse `json:"online"`
	Count  int                  `json:"count"`
}

// PhotoRequestResponse represents a created access request
type PhotoRequestResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// PendingRequestResponse represents one pending access request
type PendingRequestResponse struct {
	RequestID string `json:"request_id"`
	Requester string `json:"requester"`
	PhotoID   string `json:"photo_id"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}

// PendingListResponse represents the owner's pending queue
type PendingListResponse struct {
	Requests []PendingRequestResponse `json:"requests"`
	Count    int                      `json:"count"`
}

// ApprovalResponse represents the outcome of an approve/deny decision
type ApprovalResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	MaxViews  int    `json:"max_views,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// ViewPhotoResponse represents the outcome of a metered view
type ViewPhotoResponse struct {
	Success        bool   `json:"success"`
	ImageData      string `json:"image_data,omitempty"` // base64 stego artifact
	ViewsRemaining int    `json:"views_remaining"`
	Message        string `json:"message,omitempty"`
}

// GrantResponse represents one access grant projection
type GrantResponse struct {
	RequestID      string `json:"request_id"`
	Owner          string `json:"owner"`
	PhotoID        string `json:"photo_id"`
	MaxViews       int    `json:"max_views"`
	ViewsUsed      int    `json:"views_used"`
	ViewsRemaining int    `json:"views_remaining"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	IsExpired      bool   `json:"is_expired"`
	CanView        bool   `json:"can_view"`
}

// GrantListResponse represents a requester's grants
type GrantListResponse struct {
	Grants []GrantResponse `json:"grants"`
	Count  int             `json:"count"`
}

// PresenceDebugEntry represents one raw presence table entry
type PresenceDebugEntry struct {
	Username   string  `json:"username"`
	Addr       string  `json:"addr"`
	LastSeen   string  `json:"last_seen"`
	ElapsedSec float64 `json:"elapsed_sec"`
	Online     bool    `json:"online"`
}

// PresenceDebugResponse represents the raw presence table
type PresenceDebugResponse struct {
	Entries []PresenceDebugEntry `json:"entries"`
	TTLSec  float64              `json:"ttl_sec"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
