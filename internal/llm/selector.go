package llm

// Stage is a pipeline step that needs a model.
type Stage string

const (
	StageEcho  Stage = "echo"
	StageTier1 Stage = "tier1"
	StageTier3 Stage = "tier3"
	StageDeep  Stage = "deep"
)

// Effort is a reasoning-effort level. The zero value means none.
type Effort string

const (
	EffortNone   Effort = ""
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Selection is a concrete model and effort for one call.
type Selection struct {
	Model           string
	ReasoningEffort Effort
}

// Selector maps stages to models according to the feature flags.
type Selector struct {
	FastModel    string
	PremiumModel string
	PremiumTier3 bool
	DeepInsights bool
}

// Select returns the model for stage. milestone is only consulted for the
// premium stages.
func (s Selector) Select(stage Stage, milestone int) Selection {
	fast := Selection{Model: s.FastModel}

	switch stage {
	case StageTier3:
		if !s.PremiumTier3 {
			return fast
		}
	case StageDeep:
		if !s.DeepInsights {
			return fast
		}
	default:
		return fast
	}

	return Selection{
		Model:           s.PremiumModel,
		ReasoningEffort: EffortFor(milestone),
	}
}

// EffortFor scales reasoning effort with the amount of material available.
func EffortFor(milestone int) Effort {
	switch {
	case milestone >= 50:
		return EffortHigh
	case milestone >= 10:
		return EffortMedium
	default:
		return EffortLow
	}
}
