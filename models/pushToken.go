package models

import "time"

const PushTokensPath = "pushTokens"

type PushToken struct {
	UserID    string    `json:"userId"`
	PushToken string    `json:"pushToken"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"createdAt"`
}

type PushTokenRequest struct {
	PushToken string `json:"pushToken" binding:"required"`
	Platform  string `json:"platform" binding:"required,oneof=ios android"`
}

func (t PushToken) Fields() Document {
	return Document{
		"userId":    t.UserID,
		"pushToken": t.PushToken,
		"platform":  t.Platform,
		"createdAt": t.CreatedAt,
	}
}

func PushTokenFromFields(d Document) PushToken {
	return PushToken{
		UserID:    d.String("userId"),
		PushToken: d.String("pushToken"),
		Platform:  d.String("platform"),
		CreatedAt: d.Time("createdAt"),
	}
}
