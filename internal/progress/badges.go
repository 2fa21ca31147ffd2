package progress

import "fmt"

// Badge is an achievement awarded once.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`

	earned func(r Record, c *Catalog) bool
}

func learnedAtLeast(n int) func(Record, *Catalog) bool {
	return func(r Record, _ *Catalog) bool { return countLearned(r) >= n }
}

func streakAtLeast(n int) func(Record, *Catalog) bool {
	return func(r Record, _ *Catalog) bool { return r.Stats.CurrentStreak >= n }
}

func gradeComplete(grade int) func(Record, *Catalog) bool {
	return func(r Record, c *Catalog) bool {
		if c == nil {
			return false
		}
		flags := c.ByGrade(grade)
		if len(flags) == 0 {
			return false
		}
		for _, f := range flags {
			if !r.Flags[f.Code].Learned {
				return false
			}
		}
		return true
	}
}

// Badges lists every badge in award order.
var Badges = buildBadges()

func buildBadges() []Badge {
	badges := []Badge{
		{ID: "first-flag", Name: "はじめての こっき", Icon: "🌱", Description: "こっきを 1つ おぼえた", earned: learnedAtLeast(1)},
		{ID: "ten-flags", Name: "こっき はかせ みならい", Icon: "⭐", Description: "こっきを 10こ おぼえた", earned: learnedAtLeast(10)},
		{ID: "thirty-flags", Name: "こっき はかせ", Icon: "🏅", Description: "こっきを 30こ おぼえた", earned: learnedAtLeast(30)},
		{ID: "streak-3", Name: "3にち れんぞく", Icon: "🔥", Description: "3にち つづけて がくしゅうした", earned: streakAtLeast(3)},
		{ID: "streak-7", Name: "1しゅうかん れんぞく", Icon: "🏆", Description: "7にち つづけて がくしゅうした", earned: streakAtLeast(7)},
	}
	for g := 1; g <= 6; g++ {
		badges = append(badges, Badge{
			ID:          fmt.Sprintf("grade-complete-%d", g),
			Name:        fmt.Sprintf("%dねんせい コンプリート", g),
			Icon:        "👑",
			Description: fmt.Sprintf("%dねんせいの こっきを ぜんぶ おぼえた", g),
			earned:      gradeComplete(g),
		})
	}
	return badges
}

// LookupBadge finds a badge by ID.
func LookupBadge(id string) (Badge, bool) {
	for _, b := range Badges {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// awardBadges appends newly earned badge IDs to r and returns them.
func awardBadges(r *Record, c *Catalog) []string {
	var earned []string
	for _, b := range Badges {
		if r.HasBadge(b.ID) || !b.earned(*r, c) {
			continue
		}
		r.EarnedBadges = append(r.EarnedBadges, b.ID)
		earned = append(earned, b.ID)
	}
	return earned
}

func countLearned(r Record) int {
	n := 0
	for _, f := range r.Flags {
		if f.Learned {
			n++
		}
	}
	return n
}
