package models

// PartnerContent is published by partner accounts: guided prayers, words of
// encouragement and scripture readings share one shape.
type PartnerContent struct {
	PartnerName   string `json:"partnerName,omitempty"`
	PartnerAvatar string `json:"partnerAvatar,omitempty"`
	Title         string `json:"title" validate:"required,max=200"`
	Body          string `json:"body" validate:"required"`
	Reference     string `json:"reference,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	VideoURL      string `json:"videoUrl,omitempty"`
	ThumbnailURL  string `json:"thumbnailUrl,omitempty"`
	Likes         int    `json:"likes"`
	Comments      int    `json:"comments"`
}

func (p PartnerContent) Fields() Document {
	d := Document{
		"title":       p.Title,
		"body":        p.Body,
		FieldLikes:    p.Likes,
		FieldComments: p.Comments,
	}
	d.setString("partnerName", p.PartnerName)
	d.setString("partnerAvatar", p.PartnerAvatar)
	d.setString("reference", p.Reference)
	d.setString("imageUrl", p.ImageURL)
	d.setString("videoUrl", p.VideoURL)
	d.setString("thumbnailUrl", p.ThumbnailURL)
	return d
}

func PartnerContentFromFields(d Document) PartnerContent {
	return PartnerContent{
		PartnerName:   d.String("partnerName"),
		PartnerAvatar: d.String("partnerAvatar"),
		Title:         d.String("title"),
		Body:          d.String("body"),
		Reference:     d.String("reference"),
		ImageURL:      d.String("imageUrl"),
		VideoURL:      d.String("videoUrl"),
		ThumbnailURL:  d.String("thumbnailUrl"),
		Likes:         d.Count(FieldLikes),
		Comments:      d.Count(FieldComments),
	}
}

// PartnerCollections maps the route kind to its collection.
var PartnerCollections = map[string]Collection{
	"prayer":    CollectionPartnerPrayer,
	"word":      CollectionPartnerWord,
	"scripture": CollectionPartnerScripture,
}
