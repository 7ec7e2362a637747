package linking

import (
	"reflect"
	"slices"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// MergeProfiles unions discarded into a copy of kept and returns it with the
// number of fields that were added. Fields only on the discarded subject are
// copied over. When a field exists on both sides and either side is a list the
// values are concatenated, kept first, and de-duplicated by deep equality.
// Otherwise the kept value stays unless it is empty.
func MergeProfiles(kept, discarded models.Profile) (models.Profile, int) {
	merged := kept.Clone()
	added := 0

	for section, fields := range discarded {
		target, ok := merged[section]
		if !ok {
			target = models.ProfileSection{}
			merged[section] = target
		}
		for name, incoming := range fields {
			existing, ok := target[name]
			switch {
			case !ok || isEmptyValue(existing):
				if isEmptyValue(incoming) {
					if !ok {
						target[name] = cloneValue(incoming)
					}
					continue
				}
				target[name] = cloneValue(incoming)
				added++
			case existing.IsList() || incoming.IsList():
				target[name] = models.List(unionValues(existing.Values(), incoming.Values())...)
			}
		}
	}

	return merged, added
}

func unionValues(kept, incoming []any) []any {
	out := make([]any, 0, len(kept)+len(incoming))
	for _, v := range slices.Concat(kept, incoming) {
		if slices.ContainsFunc(out, func(existing any) bool { return reflect.DeepEqual(existing, v) }) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func cloneValue(v models.ProfileValue) models.ProfileValue {
	if v.IsList() {
		return models.List(slices.Clone(v.List)...)
	}
	return v
}

func isEmptyValue(v models.ProfileValue) bool {
	if v.IsList() {
		return len(v.List) == 0
	}
	switch s := v.Scalar.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case map[string]any:
		return len(s) == 0
	default:
		return false
	}
}
