package scoring

type Likelihood string

const (
	LikelihoodLow      Likelihood = "Low"
	LikelihoodModerate Likelihood = "Moderate"
	LikelihoodHigh     Likelihood = "High"
	LikelihoodVeryHigh Likelihood = "Very high"
)

const (
	VerdictSolid    = "solid and safe"
	VerdictRisky    = "likely to break down or crash"
	VerdictOverCost = "over budget"
	VerdictDecent   = "decent"
)

// Reliability totals at or above each threshold fall into the matching tier.
var breakdownTiers = []struct {
	min  int
	tier Likelihood
}{
	{40, LikelihoodLow},
	{30, LikelihoodModerate},
	{20, LikelihoodHigh},
}

var crashTiers = []struct {
	min  int
	tier Likelihood
}{
	{0, LikelihoodLow},
	{-10, LikelihoodModerate},
}

type Summary struct {
	Breakdown Likelihood `json:"breakdown"`
	Crash     Likelihood `json:"crash"`
	OverCost  bool       `json:"over_budget"`
	Verdict   string     `json:"verdict"`
}

func BreakdownLikelihood(reliability int) Likelihood {
	for _, t := range breakdownTiers {
		if reliability >= t.min {
			return t.tier
		}
	}
	return LikelihoodVeryHigh
}

func CrashLikelihood(risk int) Likelihood {
	for _, t := range crashTiers {
		if risk >= t.min {
			return t.tier
		}
	}
	return LikelihoodHigh
}

// Summarize classifies a build. The verdict takes the first matching rule:
// solid and safe, then risky, then over budget, then decent.
func Summarize(t Totals, budget int) Summary {
	s := Summary{
		Breakdown: BreakdownLikelihood(t.Reliability),
		Crash:     CrashLikelihood(t.Risk),
		OverCost:  t.Cost > budget,
	}
	switch {
	case s.Breakdown == LikelihoodLow && s.Crash == LikelihoodLow:
		s.Verdict = VerdictSolid
	case s.Breakdown == LikelihoodHigh || s.Breakdown == LikelihoodVeryHigh || s.Crash == LikelihoodHigh:
		s.Verdict = VerdictRisky
	case s.OverCost:
		s.Verdict = VerdictOverCost
	default:
		s.Verdict = VerdictDecent
	}
	return s
}
