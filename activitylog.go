package inkpot

import (
	"context"
	"time"
)

const (
	ActivityRegistered              = "registered"
	ActivityAccountUpdated          = "account_updated"
	ActivitySessionCreated          = "session_created"
	ActivitySessionChangedIp        = "session_changed_ip"
	ActivitySessionChangedUserAgent = "session_changed_user_agent"
	ActivityPostCreated             = "post_created"
	ActivityPostUpdated             = "post_updated"
	ActivityPostDeleted             = "post_deleted"
)

type Activity struct {
	Name string
	Data map[string]interface{}
}

type ActivityLog struct {
	Id        int64
	CreatedAt time.Time
	UserId    UserId
	Name      string
	Data      map[string]interface{}
}

type ActivityStore interface {
	AddLog(ctx context.Context, userId UserId, activity Activity) error

	// ByUserId returns logs newest first.
	ByUserId(ctx context.Context, userId UserId) ([]ActivityLog, error)
}
