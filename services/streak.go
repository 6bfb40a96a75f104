package services

// Tier is the streak ladder rank shown next to a member's streak.
type Tier string

const (
	TierIniciante Tier = "Iniciante"
	TierDedicado  Tier = "Dedicado"
	TierGuerreiro Tier = "Guerreiro"
	TierCampeao   Tier = "Campeão"
	TierLenda     Tier = "Lenda"
)

// tiers is ordered by minimum streak, lower bound inclusive.
var tiers = []struct {
	tier Tier
	min  int
}{
	{TierIniciante, 0},
	{TierDedicado, 7},
	{TierGuerreiro, 14},
	{TierCampeao, 21},
	{TierLenda, 30},
}

// Classify maps a streak to its tier.
func Classify(streak int) Tier {
	tier := TierIniciante
	for _, t := range tiers {
		if streak >= t.min {
			tier = t.tier
		}
	}
	return tier
}

// Next returns the tier above t, or "" for the top tier.
func (t Tier) Next() Tier {
	for i, c := range tiers {
		if c.tier == t && i+1 < len(tiers) {
			return tiers[i+1].tier
		}
	}
	return ""
}

// NextTier returns the tier above the one streak is in and how many more
// consecutive days reach it. ok is false at the top of the ladder.
func NextTier(streak int) (next Tier, daysLeft int, ok bool) {
	next = Classify(streak).Next()
	if next == "" {
		return "", 0, false
	}
	for _, t := range tiers {
		if t.tier == next {
			daysLeft = t.min - streak
		}
	}
	return next, daysLeft, true
}

// Level derives the member level from points: floor(points/100) + 1.
func Level(points int) int {
	if points < 0 {
		points = 0
	}
	return points/100 + 1
}

// CheckInScore is the outcome of scoring one check-in.
type CheckInScore struct {
	Consecutive  bool
	NewStreak    int
	PointsEarned int
}

// Score computes streak and points for a check-in. The bonus uses the streak
// held before this check-in.
func (r Rules) Score(currentStreak int, consecutive bool) CheckInScore {
	if !consecutive {
		return CheckInScore{NewStreak: 1, PointsEarned: r.CheckInBasePoints}
	}
	return CheckInScore{
		Consecutive:  true,
		NewStreak:    currentStreak + 1,
		PointsEarned: r.CheckInBasePoints + currentStreak*r.StreakBonusMultiplier,
	}
}
