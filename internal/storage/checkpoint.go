package storage

import (
	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/twitter"
)

// Checkpoint holds tweets that were collected but not yet confirmed deleted.
// Tweets are appended oldest-last; an empty array is the completed state.
type Checkpoint = Records[twitter.Tweet]

// NewCheckpoint opens the checkpoint stored at filePath.
func NewCheckpoint(filePath string, log *logger.Logger) *Checkpoint {
	return NewRecords(filePath, func(t twitter.Tweet) string { return t.ID }, log)
}

// Report holds followed accounts found inactive.
type Report = Records[twitter.User]

// NewReport opens the inactive-friends report stored at filePath.
func NewReport(filePath string, log *logger.Logger) *Report {
	return NewRecords(filePath, func(u twitter.User) string { return u.ID }, log)
}
