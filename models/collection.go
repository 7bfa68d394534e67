package models

// Collection identifies a family of synchronized records.
type Collection string

const (
	CollectionPrayer           Collection = "prayer"
	CollectionPrayerRequest    Collection = "prayer-request"
	CollectionCommunity        Collection = "community"
	CollectionPartnerPrayer    Collection = "partner-prayer"
	CollectionPartnerWord      Collection = "partner-word"
	CollectionPartnerScripture Collection = "partner-scripture"
	CollectionNotification     Collection = "notification"
	CollectionComment          Collection = "comment"
)

// Top level remote collection paths. Comments and notifications are child
// collections and have their paths built from the parent id.
var remotePaths = map[Collection]string{
	CollectionPrayer:           "prayers",
	CollectionPrayerRequest:    "prayerRequests",
	CollectionCommunity:        "communities",
	CollectionPartnerPrayer:    "partnerPrayers",
	CollectionPartnerWord:      "partnerWords",
	CollectionPartnerScripture: "partnerScriptures",
}

// AllCollections lists every known collection.
func AllCollections() []Collection {
	return []Collection{
		CollectionPrayer,
		CollectionPrayerRequest,
		CollectionCommunity,
		CollectionPartnerPrayer,
		CollectionPartnerWord,
		CollectionPartnerScripture,
		CollectionNotification,
		CollectionComment,
	}
}

func ParseCollection(s string) (Collection, bool) {
	for _, c := range AllCollections() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// RemotePath returns the remote collection path of a top level collection.
func (c Collection) RemotePath() (string, bool) {
	p, ok := remotePaths[c]
	return p, ok
}

// CommentsPath is the child collection holding comments of a parent record.
func CommentsPath(parentPath, parentID string) string {
	return parentPath + "/" + parentID + "/comments"
}

// NotificationsPath is the per-recipient notification collection.
func NotificationsPath(recipientID string) string {
	return "users/" + recipientID + "/notifications"
}
