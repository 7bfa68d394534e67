package models

// Comment is a child record under a parent record's comment collection.
type Comment struct {
	ParentID         string     `json:"parentId"`
	ParentCollection Collection `json:"parentCollection"`
	Text             string     `json:"text" validate:"required,max=500"`
	AuthorName       string     `json:"authorName,omitempty"`
	AuthorAvatar     string     `json:"authorAvatar,omitempty"`
	ImageURL         string     `json:"imageUrl,omitempty"`
	VideoURL         string     `json:"videoUrl,omitempty"`
	ThumbnailURL     string     `json:"thumbnailUrl,omitempty"`
	Likes            int        `json:"likes"`
}

// CommentMedia is optional media attached to a new comment.
type CommentMedia struct {
	ImageURI string `json:"imageUri,omitempty"`
	VideoURI string `json:"videoUri,omitempty"`
}

func (c Comment) Fields() Document {
	d := Document{
		"parentId":         c.ParentID,
		"parentCollection": string(c.ParentCollection),
		"text":             c.Text,
		FieldLikes:         c.Likes,
	}
	d.setString("authorName", c.AuthorName)
	d.setString("authorAvatar", c.AuthorAvatar)
	d.setString("imageUrl", c.ImageURL)
	d.setString("videoUrl", c.VideoURL)
	d.setString("thumbnailUrl", c.ThumbnailURL)
	return d
}

func CommentFromFields(d Document) Comment {
	return Comment{
		ParentID:         d.String("parentId"),
		ParentCollection: Collection(d.String("parentCollection")),
		Text:             d.String("text"),
		AuthorName:       d.String("authorName"),
		AuthorAvatar:     d.String("authorAvatar"),
		ImageURL:         d.String("imageUrl"),
		VideoURL:         d.String("videoUrl"),
		ThumbnailURL:     d.String("thumbnailUrl"),
		Likes:            d.Count(FieldLikes),
	}
}
