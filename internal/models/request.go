package models

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username     string   `json:"username"`
	Addr         string   `json:"addr"`
	SampleImages []string `json:"sample_images,omitempty"` // base64 preview assets
}

// HeartbeatRequest represents a presence heartbeat
type HeartbeatRequest struct {
	Username string `json:"username"`
	Addr     string `json:"addr"`
}

// PhotoRequestBody represents a photo access request
type PhotoRequestBody struct {
	Owner   string `json:"owner"`
	PhotoID string `json:"photo_id"`
	Message string `json:"message,omitempty"`
}

// ApprovalRequest represents the owner's decision on a pending request
type ApprovalRequest struct {
	RequestID   string `json:"request_id"`
	Approved    bool   `json:"approved"`
	MaxViews    int    `json:"max_views,omitempty"`
	ExpiryHours int    `json:"expiry_hours,omitempty"` // 0 means no expiry
}

// ViewRequest represents a metered view attempt
type ViewRequest struct {
	RequestID string `json:"request_id"`
}
