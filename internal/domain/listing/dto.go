package listing

import (
	"net/url"
	"strconv"
	"strings"

	"gigmarket/internal/pkg/validator"
)

// ListingInput is the typed listing metadata accepted by Submit and Edit.
type ListingInput struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Category     string `json:"category" validate:"required"`
	Features     string `json:"features" validate:"required"`
	ShortDesc    string `json:"shortDesc" validate:"required"`
	Price        int    `json:"price" validate:"gte=0"`
	DeliveryTime int    `json:"time" validate:"gte=0"`
	Revisions    int    `json:"revisions" validate:"gte=0"`
}

// ParseListingInput converts query-string metadata into a ListingInput.
// It returns nil, nil when no metadata was sent at all, and a field->rule map
// when something is missing or a number does not parse.
func ParseListingInput(q url.Values) (*ListingInput, map[string]string) {
	if len(q) == 0 {
		return nil, nil
	}

	problems := map[string]string{}
	in := &ListingInput{
		Title:       strings.TrimSpace(q.Get("title")),
		Description: strings.TrimSpace(q.Get("description")),
		Category:    strings.TrimSpace(q.Get("category")),
		Features:    strings.TrimSpace(q.Get("features")),
		ShortDesc:   strings.TrimSpace(q.Get("shortDesc")),
	}
	in.Price = parseCount(q, "price", problems)
	in.DeliveryTime = parseCount(q, "time", problems)
	in.Revisions = parseCount(q, "revisions", problems)

	for field, rule := range validator.Validate(in) {
		if _, seen := problems[field]; !seen {
			problems[field] = rule
		}
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return in, nil
}

func parseCount(q url.Values, key string, problems map[string]string) int {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		problems[key] = "required"
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		problems[key] = "integer"
		return 0
	}
	return n
}
