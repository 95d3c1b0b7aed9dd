package facematch

import "math"

// Authorizer decides whether a captured descriptor belongs to an enrolled identity.
type Authorizer struct {
	matcher *Matcher
}

func NewAuthorizer(matcher *Matcher) *Authorizer {
	return &Authorizer{matcher: matcher}
}

// Authorize has no side effects. An empty query means detection found no face.
func (a *Authorizer) Authorize(query []float32, threshold float64) (Authorization, error) {
	if len(query) == 0 {
		return Authorization{Decision: DecisionNoFaceDetected}, nil
	}

	result, err := a.matcher.Match(query, threshold)
	if err != nil {
		return Authorization{}, err
	}
	if !result.Matched {
		auth := Authorization{Decision: DecisionNotRecognized}
		if !math.IsInf(result.Distance, 1) {
			auth.Distance = result.Distance
		}
		return auth, nil
	}
	return Authorization{
		Decision: DecisionRecognized,
		Identity: result.Identity,
		Distance: result.Distance,
	}, nil
}
