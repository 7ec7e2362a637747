package linking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestMergeProfiles(t *testing.T) {
	kept := models.Profile{
		"core": {
			"name":  models.Scalar("John Smith"),
			"email": models.List("john@example.com"),
			"age":   models.Scalar(""),
		},
	}
	discarded := models.Profile{
		"core": {
			"name":  models.Scalar("Johnny Smith"),
			"email": models.List("john@example.com", "js@example.org"),
			"age":   models.Scalar(41.0),
			"dob":   models.Scalar("1983-01-02"),
		},
		"social": {
			"handles": models.List(map[string]any{"site": "x", "handle": "js"}),
		},
	}

	merged, added := MergeProfiles(kept, discarded)

	// age filled, dob added, social.handles added
	assert.Equal(t, 3, added)
	assert.Equal(t, "John Smith", merged["core"]["name"].Scalar)
	assert.Equal(t, []any{"john@example.com", "js@example.org"}, merged["core"]["email"].List)
	assert.Equal(t, 41.0, merged["core"]["age"].Scalar)
	assert.Equal(t, "1983-01-02", merged["core"]["dob"].Scalar)
	assert.Len(t, merged["social"]["handles"].List, 1)

	// inputs untouched
	assert.Equal(t, []any{"john@example.com"}, kept["core"]["email"].List)
	_, ok := kept["social"]
	assert.False(t, ok)
}

func TestMergeProfiles_ScalarAndListUnion(t *testing.T) {
	kept := models.Profile{"contact": {"phone": models.Scalar("+15551234567")}}
	discarded := models.Profile{"contact": {"phone": models.List("+15551234567", "+442071234567")}}

	merged, added := MergeProfiles(kept, discarded)

	assert.Equal(t, 0, added)
	assert.True(t, merged["contact"]["phone"].IsList())
	assert.Equal(t, []any{"+15551234567", "+442071234567"}, merged["contact"]["phone"].List)
}

func TestMergeProfiles_DeepEqualDedup(t *testing.T) {
	addr := map[string]any{"street": "1 Main St", "city": "Springfield"}
	kept := models.Profile{"locations": {"addresses": models.List(addr)}}
	discarded := models.Profile{"locations": {"addresses": models.List(
		map[string]any{"street": "1 Main St", "city": "Springfield"},
		map[string]any{"street": "2 Oak Ave", "city": "Springfield"},
	)}}

	merged, _ := MergeProfiles(kept, discarded)

	assert.Len(t, merged["locations"]["addresses"].List, 2)
}

func TestMergeProfiles_NilKept(t *testing.T) {
	merged, added := MergeProfiles(nil, models.Profile{"core": {"name": models.Scalar("x")}})
	assert.Equal(t, 1, added)
	assert.Equal(t, "x", merged["core"]["name"].Scalar)
}
