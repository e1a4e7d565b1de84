package editplan

import (
	"encoding/json"
	"testing"

	"lsbgear/models"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eq(id int64) *int64 { return &id }

func TestPlan_AllKeep(t *testing.T) {
	desired := []Desired{
		{Kind: models.MessageHeader, Content: "header"},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), Content: "camera a"},
	}
	existing := []Existing{
		{MessageID: 100, Kind: models.MessageHeader, ContentHash: hashOf("header")},
		{MessageID: 101, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), ContentHash: hashOf("camera a")},
	}
	ops := Plan(desired, existing)
	require.Len(t, ops, 2)
	assert.Equal(t, OpKeep, ops[0].Type)
	assert.Equal(t, OpKeep, ops[1].Type)
}

func TestPlan_EditOnContentChange(t *testing.T) {
	desired := []Desired{
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), Content: "camera a — Loaned"},
	}
	existing := []Existing{
		{MessageID: 101, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), ContentHash: hashOf("camera a — Available")},
	}
	ops := Plan(desired, existing)
	require.Len(t, ops, 1)
	assert.Equal(t, OpEdit, ops[0].Type)
	assert.Equal(t, int64(101), ops[0].MessageID)
}

func TestPlan_CreateForTailGrowth(t *testing.T) {
	desired := []Desired{
		{Kind: models.MessageHeader, Content: "header"},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), Content: "camera a"},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(2), Content: "camera b"},
	}
	existing := []Existing{
		{MessageID: 100, Kind: models.MessageHeader, ContentHash: hashOf("header")},
		{MessageID: 101, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), ContentHash: hashOf("camera a")},
	}
	ops := Plan(desired, existing)
	require.Len(t, ops, 3)
	assert.Equal(t, OpKeep, ops[0].Type)
	assert.Equal(t, OpKeep, ops[1].Type)
	assert.Equal(t, OpCreate, ops[2].Type)
}

func TestPlan_DeleteForTailShrink(t *testing.T) {
	desired := []Desired{
		{Kind: models.MessageHeader, Content: "header"},
	}
	existing := []Existing{
		{MessageID: 100, Kind: models.MessageHeader, ContentHash: hashOf("header")},
		{MessageID: 101, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), ContentHash: hashOf("camera a")},
		{MessageID: 102, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(2), ContentHash: hashOf("camera b")},
	}
	ops := Plan(desired, existing)
	require.Len(t, ops, 3)
	assert.Equal(t, OpKeep, ops[0].Type)
	assert.Equal(t, OpDelete, ops[1].Type)
	assert.Equal(t, OpDelete, ops[2].Type)
}

func TestPlan_RebuildAllOnHeavyReorder(t *testing.T) {
	desired := []Desired{
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(3), Content: "c"},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), Content: "a"},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(2), Content: "b"},
	}
	existing := []Existing{
		{MessageID: 101, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), ContentHash: hashOf("a")},
		{MessageID: 102, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(2), ContentHash: hashOf("b")},
		{MessageID: 103, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(3), ContentHash: hashOf("c")},
	}
	ops := Plan(desired, existing)
	require.Len(t, ops, 1)
	assert.Equal(t, OpRebuildAll, ops[0].Type)
	assert.ElementsMatch(t, []int64{101, 102, 103}, ops[0].DeleteIDs)
}

func TestPlan_TwoSwapsStillPatchInPlace(t *testing.T) {
	// Exactly at the maxIdentityDrift boundary: 2 mismatched positions
	// from a single adjacent swap should NOT trigger RebuildAll.
	desired := []Desired{
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(2), Content: "b"},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), Content: "a"},
	}
	existing := []Existing{
		{MessageID: 101, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), ContentHash: hashOf("a")},
		{MessageID: 102, Kind: models.MessageEquipmentEmbed, EquipmentID: eq(2), ContentHash: hashOf("b")},
	}
	ops := Plan(desired, existing)
	require.Len(t, ops, 2)
	for _, op := range ops {
		assert.NotEqual(t, OpRebuildAll, op.Type)
	}
}

func TestPlan_Golden(t *testing.T) {
	desired := []Desired{
		{Kind: models.MessageHeader, Content: "=== Equipment ==="},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(1), Content: "[cam] Sony A7 — Available"},
		{Kind: models.MessageEquipmentEmbed, EquipmentID: eq(2), Content: "[pc] Workstation 1 — Loaned — @42"},
	}
	ops := Plan(desired, nil)
	out, err := json.MarshalIndent(ops, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plan_bootstrap_from_empty", out)
}
