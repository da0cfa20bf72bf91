package purge

import "github.com/aatumaykin/twpurge/internal/twitter"

// A tweet reaching either threshold has drawn enough engagement to be shown
// to the operator before it is deleted. Retweets never need review.
const (
	ReviewRetweetThreshold  = 4
	ReviewFavoriteThreshold = 10
)

// NeedsReview reports whether tw must pass the review gate.
func NeedsReview(tw twitter.Tweet) bool {
	if tw.IsRetweet {
		return false
	}
	return tw.RetweetCount >= ReviewRetweetThreshold || tw.FavoriteCount >= ReviewFavoriteThreshold
}

// Classify splits tweets into those safe to delete unattended and those
// needing review, preserving input order in both.
func Classify(tweets []twitter.Tweet) (toDelete, toReview []twitter.Tweet) {
	for _, tw := range tweets {
		if NeedsReview(tw) {
			toReview = append(toReview, tw)
		} else {
			toDelete = append(toDelete, tw)
		}
	}
	return toDelete, toReview
}
