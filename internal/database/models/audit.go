package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit actions appended by the moderation pipeline.
const (
	AuditPublished      = "published"
	AuditScheduled      = "scheduled"
	AuditSmartScheduled = "smart_scheduled"
	AuditAutoPublished  = "auto_published"
	AuditRejected       = "rejected"
	AuditBanned         = "banned"
)

// AuditEntry is one append-only audit trail record.
type AuditEntry struct {
	ChannelID   int64              `bson:"channel_id"`
	Action      string             `bson:"action"`
	SubmitterID int64              `bson:"submitter_id"`
	AdminID     int64              `bson:"admin_id"` // zero for scheduler actions
	PostID      primitive.ObjectID `bson:"post_id,omitempty"`
	Details     string             `bson:"details,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}
