package tcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/transitcore/raptorcore/internal/network"
)

// ReadRoutes loads a routes binary artifact into the pre-index-resolution
// []network.RouteInput form network.Build expects. Schedule times are
// stored on disk as per-stop deltas (cumulative sum from zero yields the
// absolute time); ReadRoutes decodes them back to absolute seconds before
// returning. A v1 file interleaves each trip's id with its own delta row in
// file order and is not guaranteed sorted, so its trips are stable-sorted
// here by first-stop departure; a v2 file stores all trip ids as one block
// followed by all delta rows as a second block, and is trusted to already
// be sorted.
func ReadRoutes(path string) ([]network.RouteInput, error) {
	r, closer, err := newReader(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	magic, err := peekMagic(r)
	if err != nil {
		return nil, err
	}
	needsSort := magic == magicRoutesV1
	if !needsSort && magic != magicRoutesV2 {
		return nil, fmt.Errorf("tcodec: %s: unrecognized routes magic %q", path, magic)
	}

	if _, err := readVersion(r); err != nil {
		return nil, fmt.Errorf("tcodec: %s: %w", path, err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("tcodec: %s: reading route count: %w", path, err)
	}

	routes := make([]network.RouteInput, count)
	for i := range routes {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading route %d id: %w", path, i, err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading route %d name: %w", path, i, err)
		}
		var numStops, numTrips uint32
		if err := binary.Read(r, binary.LittleEndian, &numStops); err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading route %d stop count: %w", path, i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &numTrips); err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading route %d trip count: %w", path, i, err)
		}
		stopIDs, err := readFixedInt32Slice(r, int(numStops))
		if err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading route %d stop ids: %w", path, i, err)
		}

		tripIDs := make([]int32, numTrips)
		schedule := make([]int32, uint64(numStops)*uint64(numTrips))

		if needsSort {
			// v1: tripId and its delta row are interleaved, one trip at a time.
			for t := range tripIDs {
				var tripID uint32
				if err := binary.Read(r, binary.LittleEndian, &tripID); err != nil {
					return nil, fmt.Errorf("tcodec: %s: reading route %d trip %d id: %w", path, i, t, err)
				}
				tripIDs[t] = int32(tripID)
				row := schedule[t*int(numStops) : (t+1)*int(numStops)]
				if numStops > 0 {
					if err := binary.Read(r, binary.LittleEndian, row); err != nil {
						return nil, fmt.Errorf("tcodec: %s: reading route %d trip %d deltas: %w", path, i, t, err)
					}
					deltaDecode(row)
				}
			}
		} else {
			// v2: every trip id, then every delta row, each as one contiguous block.
			rawTripIDs, err := readFixedInt32Slice(r, int(numTrips))
			if err != nil {
				return nil, fmt.Errorf("tcodec: %s: reading route %d trip ids: %w", path, i, err)
			}
			tripIDs = rawTripIDs
			if numStops > 0 && numTrips > 0 {
				if err := binary.Read(r, binary.LittleEndian, schedule); err != nil {
					return nil, fmt.Errorf("tcodec: %s: reading route %d schedule: %w", path, i, err)
				}
				for t := 0; t < int(numTrips); t++ {
					deltaDecode(schedule[t*int(numStops) : (t+1)*int(numStops)])
				}
			}
		}

		if needsSort {
			stableSortTripsByFirstStop(int(numStops), schedule, tripIDs)
		}

		routes[i] = network.RouteInput{
			ID:       int(id),
			Name:     name,
			StopIDs:  fromInt32Slice(stopIDs),
			TripIDs:  fromInt32Slice(tripIDs),
			Schedule: schedule,
		}
	}

	return routes, nil
}

// WriteRoutes serializes routes to a v2 routes artifact at path: every trip
// id up front as one block, then every trip's delta-encoded schedule row as
// a second block. Callers are responsible for having already sorted each
// route's trips by first-stop departure; WriteRoutes does not re-sort.
func WriteRoutes(path string, routes []network.RouteInput) error {
	w, f, err := newWriter(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeMagic(w, magicRoutesV2); err != nil {
		return err
	}
	if err := writeVersion(w); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(routes))); err != nil {
		return err
	}
	for _, rt := range routes {
		if err := binary.Write(w, binary.LittleEndian, uint32(rt.ID)); err != nil {
			return err
		}
		if err := writeString(w, rt.Name); err != nil {
			return err
		}
		numStops := len(rt.StopIDs)
		numTrips := len(rt.TripIDs)
		if err := binary.Write(w, binary.LittleEndian, uint32(numStops)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(numTrips)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, toInt32Slice(rt.StopIDs)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, toInt32Slice(rt.TripIDs)); err != nil {
			return err
		}
		if numStops > 0 && numTrips > 0 {
			deltas := make([]int32, len(rt.Schedule))
			for t := 0; t < numTrips; t++ {
				copy(deltas[t*numStops:(t+1)*numStops], deltaEncode(rt.Schedule[t*numStops:(t+1)*numStops]))
			}
			if err := binary.Write(w, binary.LittleEndian, deltas); err != nil {
				return err
			}
		}
	}

	return w.Flush()
}
