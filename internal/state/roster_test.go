package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterAddOrUpdateKeepsOrder(t *testing.T) {
	r := NewRoster(Participant{ID: "H", Name: "host", Color: "#000000", Role: RoleHost})
	r.AddOrUpdate(Participant{ID: "P", Name: "pat", Role: RoleViewer})
	r.AddOrUpdate(Participant{ID: "Q", Name: "quin", Role: RoleViewer})
	r.AddOrUpdate(Participant{ID: "P", Name: "patricia", Role: RoleAdmin})

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"H", "P", "Q"}, []string{snap[0].ID, snap[1].ID, snap[2].ID})
	assert.Equal(t, "patricia", snap[1].Name)
	assert.Equal(t, RoleAdmin, snap[1].Role)
}

func TestRosterRemove(t *testing.T) {
	r := NewRoster(Participant{ID: "H", Role: RoleHost})
	r.AddOrUpdate(Participant{ID: "P", Role: RoleViewer})

	assert.True(t, r.Remove("P"))
	assert.False(t, r.Remove("P"))
	assert.Equal(t, 1, r.Len())
}

func TestReconcileKeepsSelfExactlyOnce(t *testing.T) {
	self := Participant{ID: "P", Name: "pat", Color: "#123456", Role: RoleViewer}
	r := NewRoster(self)

	r.Reconcile([]Participant{{ID: "H", Role: RoleHost}, {ID: "Q", Role: RoleViewer}})

	snap := r.Snapshot()
	count := 0
	for _, p := range snap {
		if p.ID == "P" {
			count++
			assert.Equal(t, self, p)
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, snap, 3)
}

func TestReconcileAdoptsHostView(t *testing.T) {
	r := NewRoster(Participant{ID: "P", Name: "pat", Role: RoleViewer})
	r.AddOrUpdate(Participant{ID: "gone", Role: RoleViewer})

	r.Reconcile([]Participant{
		{ID: "H", Role: RoleHost},
		{ID: "P", Name: "pat", Role: RoleAdmin},
		{ID: "P", Name: "dup", Role: RoleViewer},
	})

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, RoleAdmin, r.Self().Role)
	_, ok := r.Get("gone")
	assert.False(t, ok)
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleHost.CanClear())
	assert.True(t, RoleAdmin.CanClear())
	assert.False(t, RoleViewer.CanClear())
	assert.False(t, Role("owner").Valid())
}

func TestClockNeverGoesBackwards(t *testing.T) {
	c := NewClock()
	a := c.Tick()
	c.Observe(a + 10_000)
	b := c.Tick()

	assert.Greater(t, b, a+10_000)
	assert.Greater(t, c.Tick(), b)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(128), c.G)

	_, err = ParseColor("orange")
	assert.Error(t, err)

	n, err := NormalizeColor("#F00")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", n)
}

func TestCleanName(t *testing.T) {
	name, err := CleanName("  Hana ")
	require.NoError(t, err)
	assert.Equal(t, "Hana", name)

	_, err = CleanName("   ")
	assert.Error(t, err)
	_, err = CleanName(strings.Repeat("n", MaxNameLen+1))
	assert.Error(t, err)
}
