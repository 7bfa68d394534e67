package controllers

import (
	"github.com/PrayerLoop/recordsync/models"
)

// Test fixture data for use in tests

// MockPrincipal creates a regular member
func MockPrincipal() models.Principal {
	return models.Principal{
		ID:          "user-1",
		DisplayName: "Test User",
		AvatarURL:   "https://example.com/avatar.png",
		Role:        models.RoleMember,
	}
}

// MockOtherPrincipal creates a second member for ownership checks
func MockOtherPrincipal() models.Principal {
	return models.Principal{
		ID:          "user-2",
		DisplayName: "Other User",
		Role:        models.RoleMember,
	}
}

// MockPartner creates a partner allowed to publish partner content
func MockPartner() models.Principal {
	return models.Principal{
		ID:          "partner-1",
		DisplayName: "Hope Ministries",
		AvatarURL:   "https://example.com/hope.png",
		Role:        models.RolePartner,
	}
}

// MockPrayer creates a valid prayer input
func MockPrayer() models.Prayer {
	return models.Prayer{
		Title:    "Healing",
		Body:     "Please pray for my recovery",
		Category: "Healing",
	}
}

// MockCommunity creates a valid community input
func MockCommunity() models.Community {
	return models.Community{
		Name:        "Morning Prayer",
		Description: "We pray together every morning",
		Category:    "Family",
	}
}

// MockPartnerContent creates a valid scripture input
func MockPartnerContent() models.PartnerContent {
	return models.PartnerContent{
		Title:     "Be still",
		Body:      "Be still, and know that I am God.",
		Reference: "Psalm 46:10",
	}
}
