package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func sampleState() PlayerState {
	st := DefaultPlayerState(GameModeSurvival)
	st.Inventory[0] = ItemStack{Type: "diamond_sword", Amount: 1, Meta: map[string]string{"name": "Edge"}}
	st.PotionEffects = []PotionEffect{{Type: "speed", Amplifier: 1, Duration: 200}}
	st.Balances = &Balances{Balance: 42}
	st.Level = 7
	return st
}

func TestSnapshotLifecycle(t *testing.T) {
	as := assert.New(t)

	snap := NewSnapshot(uuid.New(), "alex", "survival", sampleState())
	as.True(snap.IsDirty(), "new snapshots start dirty")

	snap.MarkSaved()
	as.False(snap.IsDirty())

	st := sampleState()
	st.Level = 8
	snap.Update("alex", st)
	as.True(snap.IsDirty())
	as.Equal(8, snap.State.Level)
}

func TestSnapshotRecordIsDetached(t *testing.T) {
	as := assert.New(t)

	snap := NewSnapshot(uuid.New(), "alex", "survival", sampleState())
	rec := snap.Record(GameModeSurvival)

	if diff := cmp.Diff(snap.State, rec.State); diff != "" {
		t.Fatalf("record state mismatch (-snap +rec):\n%s", diff)
	}

	snap.State.Inventory[0].Meta["name"] = "Changed"
	snap.State.Balances.Balance = 1
	snap.State.PotionEffects[0].Amplifier = 5

	as.Equal("Edge", rec.State.Inventory[0].Meta["name"])
	as.Equal(42.0, rec.State.Balances.Balance)
	as.Equal(1, rec.State.PotionEffects[0].Amplifier)
	as.Equal(Key{Group: "survival", GameMode: GameModeSurvival, PlayerID: snap.PlayerID}, rec.Key)
}

func TestSnapshotCloneKeepsDirty(t *testing.T) {
	snap := NewSnapshot(uuid.New(), "alex", "survival", sampleState())
	clone := snap.Clone()
	assert.True(t, clone.IsDirty())

	snap.MarkSaved()
	assert.True(t, clone.IsDirty(), "clone must not follow the original")
}
