package period

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transitcore/raptorcore/internal/network"
)

func smallNetwork() *network.Network {
	stops := []network.StopInput{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	routes := []network.RouteInput{
		{ID: 1, Name: "L1", StopIDs: []int{1, 2}, TripIDs: []int{0}, Schedule: []int32{0, 300}},
	}
	return network.Build(stops, routes)
}

func TestRegistryFirstLoadedPeriodBecomesActive(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "", r.ActiveID())
	assert.Nil(t, r.Active())

	r.LoadNetwork("weekday", smallNetwork())
	assert.Equal(t, "weekday", r.ActiveID())
	assert.NotNil(t, r.Active())
}

func TestRegistrySetActiveUnknownPeriodFails(t *testing.T) {
	r := NewRegistry()
	r.LoadNetwork("weekday", smallNetwork())

	err := r.SetActive("weekend")
	assert.Error(t, err)
	assert.Equal(t, "weekday", r.ActiveID(), "a failed switch leaves the active period unchanged")
}

func TestRegistrySwitchesActiveNetwork(t *testing.T) {
	r := NewRegistry()
	weekday := smallNetwork()
	weekend := smallNetwork()
	r.LoadNetwork("weekday", weekday)
	r.LoadNetwork("weekend", weekend)

	assert.NoError(t, r.SetActive("weekend"))
	assert.Equal(t, "weekend", r.ActiveID())
	assert.Same(t, weekend, r.Active())
}

func TestRegistryPeriodsSortedByID(t *testing.T) {
	r := NewRegistry()
	r.LoadNetwork("weekend", smallNetwork())
	r.LoadNetwork("weekday", smallNetwork())
	r.LoadNetwork("holiday", smallNetwork())

	assert.Equal(t, []string{"holiday", "weekday", "weekend"}, r.Periods())
}
