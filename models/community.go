package models

const (
	FieldMembers     = "members"
	FieldMemberCount = "memberCount"
)

type Community struct {
	Name        string   `json:"name" validate:"required,min=3,max=80"`
	Description string   `json:"description" validate:"max=1000"`
	Category    string   `json:"category" validate:"required"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	IsPrivate   bool     `json:"isPrivate"`
	CreatorName string   `json:"creatorName,omitempty"`
	Members     []string `json:"members"`
	MemberCount int      `json:"memberCount"`
}

func (c Community) Fields() Document {
	members := c.Members
	if members == nil {
		members = []string{}
	}
	d := Document{
		"name":           c.Name,
		"description":    c.Description,
		"category":       c.Category,
		"isPrivate":      c.IsPrivate,
		FieldMembers:     append([]string(nil), members...),
		FieldMemberCount: c.MemberCount,
	}
	d.setString("imageUrl", c.ImageURL)
	d.setString("creatorName", c.CreatorName)
	return d
}

func CommunityFromFields(d Document) Community {
	members := d.Strings(FieldMembers)
	count := d.Count(FieldMemberCount)
	if count == 0 && len(members) > 0 {
		count = len(members)
	}
	return Community{
		Name:        d.String("name"),
		Description: d.String("description"),
		Category:    d.String("category"),
		ImageURL:    d.String("imageUrl"),
		IsPrivate:   d.Bool("isPrivate", false),
		CreatorName: d.String("creatorName"),
		Members:     members,
		MemberCount: count,
	}
}

func (c Community) HasMember(principalID string) bool {
	for _, m := range c.Members {
		if m == principalID {
			return true
		}
	}
	return false
}
