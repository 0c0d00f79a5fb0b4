package registry

import "github.com/agnivade/levenshtein"

// maxSuggestDistance caps how loose a "did you mean" match may be. Feed keys
// are short dotted names, so anything further than three edits apart is more
// likely a different feed than a typo.
const maxSuggestDistance = 3

// Suggest returns the registered key closest to the unknown key, for use in
// ConfigurationError diagnostics. It returns "" when nothing is plausibly
// close.
func (r *Registry) Suggest(unknown string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, key := range r.keys {
		if d := levenshtein.ComputeDistance(unknown, key); d < bestDist {
			best, bestDist = key, d
		}
	}
	return best
}
