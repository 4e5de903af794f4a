package domain

import "strings"

// Category groups subscriptions for statistics and listing.
type Category string

const (
	CategoryStreaming     Category = "streaming"
	CategoryMusic         Category = "music"
	CategoryProductivity  Category = "productivity"
	CategoryCloud         Category = "cloud"
	CategorySoftware      Category = "software"
	CategoryGaming        Category = "gaming"
	CategoryNews          Category = "news"
	CategoryFitness       Category = "fitness"
	CategoryEducation     Category = "education"
	CategoryCommunication Category = "communication"
	CategoryFinancial     Category = "financial"
	CategoryOther         Category = "other"
)

// categoryKeywords is a static mapping from category to the service-name
// fragments that imply it. Order matters: the first category with any hit wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryStreaming, []string{"netflix", "disney", "amazon prime", "hbo", "hulu", "paramount", "apple tv"}},
	{CategoryMusic, []string{"spotify", "apple music", "youtube music", "deezer", "tidal", "pandora"}},
	{CategoryProductivity, []string{"office", "microsoft", "notion", "slack", "zoom", "teams", "asana", "trello"}},
	{CategoryCloud, []string{"dropbox", "google drive", "icloud", "onedrive", "mega", "box"}},
	{CategorySoftware, []string{"adobe", "photoshop", "figma", "sketch", "canva", "github"}},
	{CategoryGaming, []string{"xbox", "playstation", "steam", "epic", "origin", "nintendo"}},
	{CategoryCommunication, []string{"whatsapp", "telegram", "discord", "skype"}},
	{CategoryFitness, []string{"nike", "adidas", "fitbit", "myfitnesspal", "strava"}},
	{CategoryEducation, []string{"coursera", "udemy", "khan academy", "duolingo", "skillshare"}},
}

// DetectCategory maps a service name to its category via the keyword table.
func DetectCategory(serviceName string) Category {
	lower := strings.ToLower(serviceName)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.category
			}
		}
	}
	return CategoryOther
}
