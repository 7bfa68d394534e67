package models

// Prayer is the payload of both prayer and prayer-request records. Community
// posts are prayers tagged with a communityId.
type Prayer struct {
	Title        string `json:"title" validate:"required,max=200"`
	Body         string `json:"body" validate:"max=5000"`
	Category     string `json:"category" validate:"required"`
	CommunityID  string `json:"communityId,omitempty"`
	AuthorName   string `json:"authorName,omitempty"`
	AuthorAvatar string `json:"authorAvatar,omitempty"`
	IsAnonymous  bool   `json:"isAnonymous"`
	ImageURL     string `json:"imageUrl,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Likes        int    `json:"likes"`
	Comments     int    `json:"comments"`
}

func (p Prayer) Fields() Document {
	d := Document{
		"title":       p.Title,
		"body":        p.Body,
		"category":    p.Category,
		"isAnonymous": p.IsAnonymous,
		FieldLikes:    p.Likes,
		FieldComments: p.Comments,
	}
	d.setString("communityId", p.CommunityID)
	d.setString("authorName", p.AuthorName)
	d.setString("authorAvatar", p.AuthorAvatar)
	d.setString("imageUrl", p.ImageURL)
	d.setString("videoUrl", p.VideoURL)
	d.setString("thumbnailUrl", p.ThumbnailURL)
	return d
}

func PrayerFromFields(d Document) Prayer {
	return Prayer{
		Title:        d.String("title"),
		Body:         d.String("body"),
		Category:     d.String("category"),
		CommunityID:  d.String("communityId"),
		AuthorName:   d.String("authorName"),
		AuthorAvatar: d.String("authorAvatar"),
		IsAnonymous:  d.Bool("isAnonymous", false),
		ImageURL:     d.String("imageUrl"),
		VideoURL:     d.String("videoUrl"),
		ThumbnailURL: d.String("thumbnailUrl"),
		Likes:        d.Count(FieldLikes),
		Comments:     d.Count(FieldComments),
	}
}
