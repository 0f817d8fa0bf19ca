package skill

import "sort"

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// LevelProgress is the derived level state for a given XP total.
type LevelProgress struct {
	// Current - the highest level whose threshold is at or below the XP.
	Current Level

	// Next - the following level row, nil at the top of the table.
	Next *Level

	// XP - the total XP the progress was computed from.
	XP int
}

// PercentToNext returns 0-100 progress toward the next threshold.
// Returns 100 at the max level.
func (p LevelProgress) PercentToNext() float64 {
	if p.Next == nil {
		return 100
	}
	span := p.Next.XPThreshold - p.Current.XPThreshold
	if span <= 0 {
		return 100
	}
	pct := float64(p.XP-p.Current.XPThreshold) / float64(span) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// XPToNext returns the XP still needed for the next level, 0 at the top.
func (p LevelProgress) XPToNext() int {
	if p.Next == nil {
		return 0
	}
	remaining := p.Next.XPThreshold - p.XP
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CurrentAndNextLevel finds the highest level whose threshold is at or
// below xp, and the row after it. When xp sits below every threshold
// (possible only if the table does not start at zero) the first row is
// treated as current and the second as next.
func CurrentAndNextLevel(table LevelTable, xp int) LevelProgress {
	levels := table.Levels()

	currentIdx := -1
	for i, lvl := range levels {
		if lvl.XPThreshold <= xp {
			currentIdx = i
		} else {
			break
		}
	}

	if currentIdx < 0 {
		progress := LevelProgress{Current: levels[0], XP: xp}
		if len(levels) > 1 {
			next := levels[1]
			progress.Next = &next
		}
		return progress
	}

	progress := LevelProgress{Current: levels[currentIdx], XP: xp}
	if currentIdx+1 < len(levels) {
		next := levels[currentIdx+1]
		progress.Next = &next
	}
	return progress
}

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// CategoryProgress is one radar axis: a master stat with the user's
// summed points, raw and display-clamped.
type CategoryProgress struct {
	// MasterStatID - the category.
	MasterStatID string

	// Name - axis label.
	Name string

	// RawPoints - the unclamped sum of points in this category.
	RawPoints float64

	// Display - RawPoints clamped to [0, 100] for the radar chart.
	Display float64

	// SortOrder - stable axis ordering.
	SortOrder int
}

// AggregateByCategory groups the user's skill points by master stat,
// sums them, and clamps each category's display value to [0, 100].
// Categories with no earned points still appear as zero axes so the
// radar shape is stable. Skills referencing unknown stats are skipped.
func AggregateByCategory(stats []MasterStat, skills []Skill, userSkills []UserSkill) []CategoryProgress {
	statBySkill := make(map[string]string, len(skills))
	for _, s := range skills {
		statBySkill[s.ID] = s.MasterStatID
	}

	totals := make(map[string]float64, len(stats))
	for _, us := range userSkills {
		statID, ok := statBySkill[us.SkillID]
		if !ok {
			continue
		}
		totals[statID] += us.PointsEarned
	}

	result := make([]CategoryProgress, 0, len(stats))
	for _, stat := range stats {
		raw := totals[stat.ID]
		result = append(result, CategoryProgress{
			MasterStatID: stat.ID,
			Name:         stat.Name,
			RawPoints:    raw,
			Display:      clamp(raw, 0, 100),
			SortOrder:    stat.SortOrder,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// TotalXP is the unclamped sum across all categories, truncated to an
// int the way the level table expects.
func TotalXP(categories []CategoryProgress) int {
	var sum float64
	for _, c := range categories {
		sum += c.RawPoints
	}
	return int(sum)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
