package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentCount(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int
	}{
		{name: "missing", value: nil, expected: 0},
		{name: "int64 from remote", value: int64(7), expected: 7},
		{name: "float64 from json", value: float64(3), expected: 3},
		{name: "negative clamps", value: int64(-2), expected: 0},
		{name: "wrong type", value: "12", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Document{}
			if tt.value != nil {
				d["likes"] = tt.value
			}
			assert.Equal(t, tt.expected, d.Count("likes"))
		})
	}
}

func TestDocumentStringsTreatsMalformedAsEmpty(t *testing.T) {
	assert.Equal(t, []string{}, Document{"members": "u1"}.Strings("members"))
	assert.Equal(t, []string{}, Document{"members": map[string]any{"u1": true}}.Strings("members"))
	assert.Equal(t, []string{}, Document{}.Strings("members"))
	assert.Equal(t, []string{"u1", "u2"}, Document{"members": []any{"u1", 5, "u2"}}.Strings("members"))
}

func TestDocumentTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	assert.True(t, now.Equal(Document{"createdAt": now}.Time("createdAt")))
	assert.True(t, now.Equal(Document{"createdAt": now.Format(time.RFC3339Nano)}.Time("createdAt")))
	assert.True(t, now.Equal(Document{"createdAt": float64(now.UnixMilli())}.Time("createdAt")))
	assert.True(t, Document{"createdAt": "yesterday"}.Time("createdAt").IsZero())
}

func TestDecodeRecordNormalizesLocalJSON(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Record[Prayer]{
		ID:         "p1",
		Collection: CollectionPrayer,
		OwnerID:    "u1",
		CreatedAt:  created,
		IsActive:   true,
		Payload:    Prayer{Title: "Healing", Category: "Healing", Likes: 2},
	}

	raw, err := json.Marshal(rec.Document())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(raw, &doc))

	decoded := DecodeRecord(CollectionPrayer, "p1", doc, PrayerFromFields)
	assert.Equal(t, rec.OwnerID, decoded.OwnerID)
	assert.True(t, created.Equal(decoded.CreatedAt))
	assert.Equal(t, rec.Payload, decoded.Payload)
	assert.True(t, decoded.IsActive)
}

func TestDecodeRecordDefaults(t *testing.T) {
	decoded := DecodeRecord(CollectionCommunity, "c1", Document{
		"name":    "Morning Prayer",
		"members": "not-an-array",
	}, CommunityFromFields)

	assert.True(t, decoded.IsActive)
	assert.Empty(t, decoded.OwnerID)
	assert.Equal(t, []string{}, decoded.Payload.Members)
	assert.Equal(t, 0, decoded.Payload.MemberCount)
}

func TestCommunityMemberCountFallsBackToMembers(t *testing.T) {
	c := CommunityFromFields(Document{"members": []any{"u1", "u2"}})
	assert.Equal(t, 2, c.MemberCount)
	assert.True(t, c.HasMember("u2"))
	assert.False(t, c.HasMember("u3"))
}

func TestParseCollection(t *testing.T) {
	c, ok := ParseCollection("partner-word")
	assert.True(t, ok)
	assert.Equal(t, CollectionPartnerWord, c)

	_, ok = ParseCollection("users")
	assert.False(t, ok)

	path, ok := CollectionPrayerRequest.RemotePath()
	assert.True(t, ok)
	assert.Equal(t, "prayerRequests", path)
	assert.Equal(t, "prayers/p1/comments", CommentsPath("prayers", "p1"))
	assert.Equal(t, "users/u1/notifications", NotificationsPath("u1"))
}
