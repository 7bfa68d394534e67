package models

// Notification type constants
const (
	NotificationTypeNewPost    = "NEW_POST"
	NotificationTypeNewComment = "NEW_COMMENT"
)

const FieldIsRead = "isRead"

type Notification struct {
	RecipientID      string     `json:"recipientId"`
	Type             string     `json:"type"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	ActorID          string     `json:"actorId,omitempty"`
	ActorName        string     `json:"actorName,omitempty"`
	ActorAvatar      string     `json:"actorAvatar,omitempty"`
	CommunityID      string     `json:"communityId,omitempty"`
	TargetID         string     `json:"targetId,omitempty"`
	TargetCollection Collection `json:"targetCollection,omitempty"`
	IsRead           bool       `json:"isRead"`
}

func (n Notification) Fields() Document {
	d := Document{
		"recipientId": n.RecipientID,
		"type":        n.Type,
		"title":       n.Title,
		"message":     n.Message,
		FieldIsRead:   n.IsRead,
	}
	d.setString("actorId", n.ActorID)
	d.setString("actorName", n.ActorName)
	d.setString("actorAvatar", n.ActorAvatar)
	d.setString("communityId", n.CommunityID)
	d.setString("targetId", n.TargetID)
	d.setString("targetCollection", string(n.TargetCollection))
	return d
}

func NotificationFromFields(d Document) Notification {
	return Notification{
		RecipientID:      d.String("recipientId"),
		Type:             d.String("type"),
		Title:            d.String("title"),
		Message:          d.String("message"),
		ActorID:          d.String("actorId"),
		ActorName:        d.String("actorName"),
		ActorAvatar:      d.String("actorAvatar"),
		CommunityID:      d.String("communityId"),
		TargetID:         d.String("targetId"),
		TargetCollection: Collection(d.String("targetCollection")),
		IsRead:           d.Bool(FieldIsRead, false),
	}
}
