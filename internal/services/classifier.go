package services

import (
	"github.com/kindred-wellness/kindred/internal/config"
	"github.com/kindred-wellness/kindred/internal/models"
)

// UserTier is the reward-tiering classification of a user.
type UserTier string

const (
	TierNew         UserTier = "new"
	TierEstablished UserTier = "established"
)

// Default engagement thresholds below which a user counts as New.
const (
	DefaultNewMoodEntryLimit = 3
	DefaultNewXPLimit        = 10
)

// UserClassifier decides whether a user is New or Established. Callers must
// classify at the moment of acceptance or consumption, never ahead of time:
// the tier depends on the user's current counters.
type UserClassifier struct {
	moodEntryLimit int
	xpLimit        int
}

func NewUserClassifier(cfg config.ClassifierConfig) *UserClassifier {
	c := &UserClassifier{
		moodEntryLimit: cfg.NewMoodEntryLimit,
		xpLimit:        cfg.NewXPLimit,
	}
	if c.moodEntryLimit <= 0 {
		c.moodEntryLimit = DefaultNewMoodEntryLimit
	}
	if c.xpLimit <= 0 {
		c.xpLimit = DefaultNewXPLimit
	}
	return c
}

// Classify is pure and side-effect free.
func (c *UserClassifier) Classify(user *models.User) UserTier {
	if user.MoodEntryCount < c.moodEntryLimit && user.TotalXP < c.xpLimit {
		return TierNew
	}
	return TierEstablished
}
