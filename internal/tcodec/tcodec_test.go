package tcodec

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitcore/raptorcore/internal/network"
)

func TestStopsRoundTrip(t *testing.T) {
	stops := []network.StopInput{
		{ID: 1, Name: "Central", Lat: 14.7, Lon: -17.4, RouteIDs: []int{1, 2}},
		{
			ID: 2, Name: "Market", Lat: 14.71, Lon: -17.41,
			RouteIDs:  []int{1},
			Transfers: []network.Transfer{{TargetStopID: 3, WalkSeconds: 90}},
		},
	}

	path := filepath.Join(t.TempDir(), "stops.bin")
	require.NoError(t, WriteStops(path, stops))

	got, err := ReadStops(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, stops[0].ID, got[0].ID)
	assert.Equal(t, stops[0].Name, got[0].Name)
	assert.Equal(t, stops[0].Lat, got[0].Lat)
	assert.Equal(t, stops[0].RouteIDs, got[0].RouteIDs)
	assert.Equal(t, stops[1].Transfers, got[1].Transfers)
}

func TestRoutesRoundTrip(t *testing.T) {
	routes := []network.RouteInput{
		{
			ID: 1, Name: "L1",
			StopIDs:  []int{1, 2, 3},
			TripIDs:  []int{0, 1},
			Schedule: []int32{28800, 29100, 29400, 32400, 32700, 33000},
		},
	}

	path := filepath.Join(t.TempDir(), "routes.bin")
	require.NoError(t, WriteRoutes(path, routes))

	got, err := ReadRoutes(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, routes[0].StopIDs, got[0].StopIDs)
	assert.Equal(t, routes[0].Schedule, got[0].Schedule)
}

func TestReadRoutesSortsV1FormatByFirstStopDeparture(t *testing.T) {
	// hand-write a v1 file with trips out of order, the interleaved
	// tripId-then-delta-row layout a pre-tcodec preprocessor would have
	// emitted straight from GTFS trip order.
	path := filepath.Join(t.TempDir(), "routes_v1.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := bufio.NewWriter(f)

	require.NoError(t, writeMagic(w, magicRoutesV1))
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint16(1))) // format version
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(1))) // route count
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(7))) // route id
	require.NoError(t, writeString(w, "L1"))
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(2))) // S: stops in pattern
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(2))) // T: trips in route
	require.NoError(t, binary.Write(w, binary.LittleEndian, []int32{1, 2}))
	// trip 100 departs later (09:00) than trip 200 (08:00) - out of order.
	// Each trip's row is stored as deltas from zero: [32400, 300] and [28800, 300].
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(100)))
	require.NoError(t, binary.Write(w, binary.LittleEndian, []int32{32400, 300}))
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(200)))
	require.NoError(t, binary.Write(w, binary.LittleEndian, []int32{28800, 300}))
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	got, err := ReadRoutes(path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, []int{200, 100}, got[0].TripIDs, "v1 trips are stable-sorted by first-stop departure on read")
	assert.Equal(t, []int32{28800, 29100, 32400, 32700}, got[0].Schedule, "deltas decode to absolute times")
}

func TestRoutesScheduleDeltaRoundTrip(t *testing.T) {
	// A schedule with a mid-trip standing time (delta of zero) exercises the
	// cumulative-sum decode past its simplest case.
	routes := []network.RouteInput{
		{
			ID: 9, Name: "L9",
			StopIDs:  []int{1, 2, 3, 4},
			TripIDs:  []int{500},
			Schedule: []int32{36000, 36000, 36300, 36900},
		},
	}

	path := filepath.Join(t.TempDir(), "routes_delta.bin")
	require.NoError(t, WriteRoutes(path, routes))

	got, err := ReadRoutes(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, routes[0].Schedule, got[0].Schedule)
}

func TestRoutesFileCarriesFormatVersionBetweenMagicAndCount(t *testing.T) {
	routes := []network.RouteInput{
		{ID: 1, Name: "L1", StopIDs: []int{1, 2}, TripIDs: []int{0}, Schedule: []int32{28800, 29100}},
	}
	path := filepath.Join(t.TempDir(), "routes_version.bin")
	require.NoError(t, WriteRoutes(path, routes))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 10)

	version := binary.LittleEndian.Uint16(raw[4:6])
	assert.Equal(t, currentFormatVersion, version)
	count := binary.LittleEndian.Uint32(raw[6:10])
	assert.Equal(t, uint32(1), count)
}

func TestReadStopsRejectsUnknownMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("XXXX"), 0o644))

	_, err := ReadStops(path)
	assert.Error(t, err)
}
