package models

import "time"

// RewardGrant is a single idempotent reward. The Key is deterministic for the
// event that produced it (publish, streak threshold, quest day, achievement),
// so retries collide on _id instead of granting twice.
type RewardGrant struct {
	Key       string    `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	Amount    int       `bson:"amount"`
	Reason    string    `bson:"reason"`
	GrantedAt time.Time `bson:"granted_at"`
}

// Streak tracks a submitter's consecutive-day publishing activity.
// LastDay is a calendar day in "2006-01-02" form.
type Streak struct {
	UserID    int64     `bson:"_id"`
	Length    int       `bson:"length"`
	LastDay   string    `bson:"last_day"`
	UpdatedAt time.Time `bson:"updated_at"`
}
