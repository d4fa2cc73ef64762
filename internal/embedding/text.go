package embedding

import (
	"strings"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/pkg/utils"
)

const (
	partSeparator       = " | "
	maxDescriptionRunes = 500
	maxResumeTextRunes  = 2000
)

// ItemText builds the embedding input for an item: title | company | tags | description,
// with the description cut to its first 500 characters.
func ItemText(item *models.Item) string {
	desc := utils.CollapseWhitespace(item.Description)
	if r := []rune(desc); len(r) > maxDescriptionRunes {
		desc = string(r[:maxDescriptionRunes])
	}
	return utils.JoinNonEmpty(partSeparator,
		item.Title,
		item.Company,
		strings.Join(item.Tags, " "),
		desc,
	)
}

// UserText builds the embedding input for a profile: headline | skills | preferred locations,
// followed by resume text when present. Returns "" when the profile declares nothing.
func UserText(in *models.UserInput) string {
	resume := utils.CollapseWhitespace(in.ResumeText)
	if r := []rune(resume); len(r) > maxResumeTextRunes {
		resume = string(r[:maxResumeTextRunes])
	}
	return utils.JoinNonEmpty(partSeparator,
		in.Headline,
		strings.Join(in.Skills, " "),
		strings.Join(in.PreferredLocations, " "),
		resume,
	)
}
