package opportunity

import (
	"fmt"

	"github.com/loclift/growth-cli/internal/model"
)

// explainInputs carries everything the explanation templates read. The map
// built from them is reproducible from the score inputs alone.
type explainInputs struct {
	service    string
	geo        string
	confidence float64
	mentions   int
	lowQuality int
	missing    int
	unused     int
	weakCTA    int
	intentVerb bool
	seasonal   model.SeasonalityInfo
}

func explain(in explainInputs) map[string]string {
	why := make(map[string]string, 5)

	switch {
	case in.confidence > 0.65:
		why["confidence"] = fmt.Sprintf("strong keyword signal for %q (confidence %.2f)", in.service, in.confidence)
	case in.confidence >= 0.4:
		why["confidence"] = fmt.Sprintf("moderate keyword signal for %q (confidence %.2f)", in.service, in.confidence)
	default:
		why["confidence"] = fmt.Sprintf("early keyword signal for %q (confidence %.2f)", in.service, in.confidence)
	}

	if in.geo != "" {
		if in.missing > 0 {
			why["geo"] = fmt.Sprintf("no competitor page targets %q in %s yet", in.service, in.geo)
		} else {
			why["geo"] = fmt.Sprintf("city-targeted opportunity in %s", in.geo)
		}
	} else {
		why["geo"] = "no city target; scored as a service-wide opportunity"
	}

	switch {
	case in.mentions == 0:
		why["competition"] = "no tracked competitor offers this service"
	case in.lowQuality >= 8:
		why["competition"] = fmt.Sprintf("%d competitors cover it but their sites average very low quality", in.mentions)
	case in.lowQuality > 0:
		why["competition"] = fmt.Sprintf("%d competitors cover it with below-average websites", in.mentions)
	default:
		why["competition"] = fmt.Sprintf("%d competitors already cover this service", in.mentions)
	}
	if in.weakCTA >= 6 {
		why["competition"] += "; none of them show a call to action"
	} else if in.weakCTA > 0 {
		why["competition"] += "; their calls to action are sparse"
	}

	switch {
	case in.unused >= 6:
		why["novelty"] = "high keyword demand with little competitor coverage"
	case in.unused > 0:
		why["novelty"] = "growing keyword demand not yet saturated"
	default:
		why["novelty"] = "fresh recommendation for this client"
	}

	if in.seasonal.Match {
		why["timing"] = fmt.Sprintf("peaks in %s; now is the season to publish", in.seasonal.CurrentSeason)
	} else if in.intentVerb {
		why["timing"] = "matches a high-intent search verb; good evergreen target"
	} else {
		why["timing"] = fmt.Sprintf("no seasonal peak; current season is %s", in.seasonal.CurrentSeason)
	}

	return why
}

func explainDuplicate(service, geo string) map[string]string {
	target := service
	if geo != "" {
		target = fmt.Sprintf("%s in %s", service, geo)
	}
	return map[string]string{
		"novelty": fmt.Sprintf("%s was recommended in a recent run; suppressed to keep recommendations fresh", target),
	}
}
