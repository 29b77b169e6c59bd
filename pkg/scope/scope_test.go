package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/syia/fleetgate/pkg/tenant"
)

var (
	bypassTenant = tenant.NewContext("SYIA-admin", true, nil)
	fleetTenant  = tenant.NewContext("oceanic", false, []int64{9123456, 9234567})
	deniedTenant = tenant.NewContext("nobody", false, nil)
)

func TestFilterString(t *testing.T) {
	tests := []struct {
		name     string
		tc       *tenant.Context
		existing string
		want     string
	}{
		{"bypass unchanged", bypassTenant, "status:open", "status:open"},
		{"bypass empty", bypassTenant, "", ""},
		{"fleet appended", fleetTenant, "status:open", "status:open && imo:[9123456,9234567]"},
		{"fleet alone", fleetTenant, "", "imo:[9123456,9234567]"},
		{"empty fleet contradicts", deniedTenant, "status:open", "status:open && imo:[-1]"},
		{"empty fleet alone", deniedTenant, "", "imo:[-1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterString(tt.tc, tt.existing))
		})
	}
}

func TestFilter(t *testing.T) {
	existing := bson.M{"status": "open"}

	scoped := Filter(fleetTenant, existing)
	assert.Equal(t, "open", scoped["status"])
	assert.Equal(t, bson.M{"$in": []any{int64(9123456), int64(9234567)}}, scoped["imo"])

	// Input untouched.
	_, hasIMO := existing["imo"]
	assert.False(t, hasIMO)
}

func TestFilter_KeepsCallerOwnershipConstraint(t *testing.T) {
	// A lookup for one specific vessel must stay a lookup for that vessel,
	// not widen into the whole fleet.
	existing := bson.M{"imo": int64(9123456)}

	scoped := Filter(fleetTenant, existing)
	and, ok := scoped["$and"].([]bson.M)
	require.True(t, ok, "expected caller constraint and fleet clause combined under $and, got %v", scoped)
	require.Len(t, and, 2)
	assert.Equal(t, int64(9123456), and[0]["imo"])
	assert.Equal(t, bson.M{"$in": []any{int64(9123456), int64(9234567)}}, and[1]["imo"])

	// Input untouched.
	assert.Equal(t, bson.M{"imo": int64(9123456)}, existing)
}

func TestFilter_CallerConstraintStaysFailClosed(t *testing.T) {
	scoped := Filter(deniedTenant, bson.M{"imo": int64(9123456)})
	and, ok := scoped["$and"].([]bson.M)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Equal(t, bson.M{"$in": []any{}}, and[1]["imo"])
}

func TestFilter_LogicalOperatorCombinedUnderAnd(t *testing.T) {
	existing := bson.M{"$or": []bson.M{{"imo": int64(9123456)}, {"imo": int64(9999999)}}}

	scoped := Filter(fleetTenant, existing)
	and, ok := scoped["$and"].([]bson.M)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Equal(t, existing["$or"], and[0]["$or"])
	assert.Equal(t, bson.M{"$in": []any{int64(9123456), int64(9234567)}}, and[1]["imo"])
}

func TestFilter_EmptyFleetMatchesNothing(t *testing.T) {
	scoped := Filter(deniedTenant, bson.M{})
	in, ok := scoped["imo"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, []any{}, in["$in"])
}

func TestFilter_Bypass(t *testing.T) {
	scoped := Filter(bypassTenant, bson.M{"status": "open"})
	assert.Equal(t, bson.M{"status": "open"}, scoped)
}

func TestPipeline_PrependsMatch(t *testing.T) {
	existing := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$type"}}}},
	}

	scoped := Pipeline(fleetTenant, existing)
	require.Len(t, scoped, 2)
	assert.Equal(t, "$match", scoped[0][0].Key)
	assert.Equal(t, "$group", scoped[1][0].Key)

	// Input untouched.
	require.Len(t, existing, 1)
	assert.Equal(t, "$group", existing[0][0].Key)
}

func TestPipeline_EmptyFleetMatchesNothing(t *testing.T) {
	scoped := Pipeline(deniedTenant, nil)
	require.Len(t, scoped, 1)

	match := scoped[0][0]
	assert.Equal(t, "$match", match.Key)

	cond, ok := match.Value.(bson.D)
	require.True(t, ok)
	assert.Equal(t, OwnershipField, cond[0].Key)

	in, ok := cond[0].Value.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "$in", in[0].Key)
	assert.Equal(t, []any{}, in[0].Value)
}

func TestPipeline_Bypass(t *testing.T) {
	existing := mongo.Pipeline{
		bson.D{{Key: "$sort", Value: bson.D{{Key: "date", Value: -1}}}},
	}
	scoped := Pipeline(bypassTenant, existing)
	require.Len(t, scoped, 1)
	assert.Equal(t, "$sort", scoped[0][0].Key)
}
