package synth

import (
	"github.com/voxweave-labs/voxweave-core/internal/markup"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// Capability declares what a synthesis model accepts. The orchestrator
// rewrites chunk markup against this profile immediately before dispatch.
type Capability struct {
	ModelClass      tuning.ModelClass
	MaxBreakMS      int
	SupportsContext bool
	SupportsSeed    bool
}

// profiles are the known model capability profiles, keyed by model class.
var profiles = map[tuning.ModelClass]Capability{
	tuning.ModelClassFull: {
		ModelClass:      tuning.ModelClassFull,
		MaxBreakMS:      3000,
		SupportsContext: true,
		SupportsSeed:    true,
	},
	tuning.ModelClassCue: {
		ModelClass:      tuning.ModelClassCue,
		MaxBreakMS:      2000,
		SupportsContext: true,
		SupportsSeed:    false,
	},
	tuning.ModelClassBare: {
		ModelClass:      tuning.ModelClassBare,
		MaxBreakMS:      0,
		SupportsContext: false,
		SupportsSeed:    false,
	},
}

// CapabilityFor returns the profile for a model class, defaulting to the
// most conservative profile for unknown classes.
func CapabilityFor(class tuning.ModelClass) Capability {
	if cap, ok := profiles[class]; ok {
		return cap
	}
	return profiles[tuning.ModelClassBare]
}

// RewriteForModel adapts chunk markup to the capability profile: the
// supported markup subset is enforced via sanitization and break durations
// are clamped to the model maximum. Pure; the chunk itself is not mutated.
func RewriteForModel(body string, cap Capability, timing tuning.TimingTable) string {
	body = markup.Sanitize(body, cap.ModelClass)
	if cap.MaxBreakMS <= 0 {
		return body
	}
	clamped := timing
	if clamped.ModelMaxMS > cap.MaxBreakMS {
		clamped.ModelMaxMS = cap.MaxBreakMS
	}
	body = markup.MergeBreaks(body, clamped)
	return markup.ClampBreaks(body, clamped)
}
