package usecases

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

const DefaultDurationMinutes = 30

// MaxDurationMinutes bounds a parsed duration to one day.
const MaxDurationMinutes = 24 * 60

// ParsedRequest is what could be read out of a free-text meeting request.
// Zero values mean the text did not say.
type ParsedRequest struct {
	Fragments       []string
	LocationType    meeting.LocationType
	TimeOfDay       meeting.TimeOfDay
	DurationMinutes int
	Cuisines        []string
}

var (
	withRe     = regexp.MustCompile(`(?i)\bwith\s+(.+?)(?:\s+(?:for|at|in|on|to|about|over|around|during|sometime|tomorrow|today|tonight|next|this)\b|[.;:!?](?:\s|$)|$)`)
	listSepRe  = regexp.MustCompile(`(?i)\s*(?:,|&|\band\b)\s*`)
	durationRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)[\s-]*(minutes?|mins?|hours?|hrs?|h)\b`)
	wordRe     = regexp.MustCompile(`[a-z]+`)
)

var locationWords = []struct {
	loc   meeting.LocationType
	words []string
}{
	{meeting.LocationVirtual, []string{"call", "zoom", "video", "virtual", "online", "remote", "phone"}},
	{meeting.LocationRestaurant, []string{"lunch", "dinner", "breakfast", "brunch", "restaurant", "eat", "meal"}},
	{meeting.LocationCoffee, []string{"coffee", "cafe", "tea", "espresso"}},
	{meeting.LocationOffice, []string{"office", "desk", "hq"}},
}

var timeOfDayWords = []struct {
	tod   meeting.TimeOfDay
	words []string
}{
	{meeting.Morning, []string{"morning"}},
	{meeting.Afternoon, []string{"afternoon"}},
	{meeting.Evening, []string{"evening", "tonight"}},
	{meeting.Morning, []string{"breakfast"}},
	{meeting.Afternoon, []string{"lunch"}},
	{meeting.Evening, []string{"dinner"}},
}

var cuisineWords = []string{
	"chinese", "french", "greek", "indian", "italian", "japanese", "korean",
	"mediterranean", "mexican", "pizza", "sushi", "thai", "vegan", "vegetarian", "vietnamese",
}

// ParseRequest extracts participants, meeting type, time of day, duration and
// cuisine hints from text like "lunch with Jane and Bob tomorrow for 45 min".
func ParseRequest(text string) ParsedRequest {
	var p ParsedRequest
	words := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		words[w] = true
	}

	if m := withRe.FindStringSubmatch(text); m != nil {
		for _, f := range listSepRe.Split(m[1], -1) {
			if f = strings.TrimSpace(f); f != "" {
				p.Fragments = append(p.Fragments, f)
			}
		}
	}

	for _, lw := range locationWords {
		if anyWord(words, lw.words) {
			p.LocationType = lw.loc
			break
		}
	}
	for _, tw := range timeOfDayWords {
		if anyWord(words, tw.words) {
			p.TimeOfDay = tw.tod
			break
		}
	}
	for _, c := range cuisineWords {
		if words[c] {
			p.Cuisines = append(p.Cuisines, c)
		}
	}
	p.DurationMinutes = parseDuration(text)
	return p
}

func parseDuration(text string) int {
	if m := durationRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil && n > 0 {
			if strings.HasPrefix(strings.ToLower(m[2]), "h") {
				n *= 60
			}
			return int(min(n, MaxDurationMinutes))
		}
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "half an hour"), strings.Contains(lower, "half hour"):
		return 30
	case strings.Contains(lower, "an hour"), strings.Contains(lower, "one hour"):
		return 60
	}
	return 0
}

func anyWord(set map[string]bool, words []string) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}
