package tcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/transitcore/raptorcore/internal/network"
)

// ReadStops loads a stops binary artifact into the pre-index-resolution
// []network.StopInput form network.Build expects. Both magic versions carry
// the same stop layout; the format version field right after the magic must
// equal the version this package writes, or ReadStops returns an error.
func ReadStops(path string) ([]network.StopInput, error) {
	r, closer, err := newReader(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	magic, err := peekMagic(r)
	if err != nil {
		return nil, err
	}
	if magic != magicStopsV1 && magic != magicStopsV2 {
		return nil, fmt.Errorf("tcodec: %s: unrecognized stops magic %q", path, magic)
	}

	if _, err := readVersion(r); err != nil {
		return nil, fmt.Errorf("tcodec: %s: %w", path, err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("tcodec: %s: reading stop count: %w", path, err)
	}

	stops := make([]network.StopInput, count)
	for i := range stops {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading stop %d id: %w", path, i, err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading stop %d name: %w", path, i, err)
		}
		var lat, lon float64
		if err := binary.Read(r, binary.LittleEndian, &lat); err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading stop %d lat: %w", path, i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &lon); err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading stop %d lon: %w", path, i, err)
		}
		routeIDs, err := readInt32Slice(r)
		if err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading stop %d route ids: %w", path, i, err)
		}
		var transferCount uint32
		if err := binary.Read(r, binary.LittleEndian, &transferCount); err != nil {
			return nil, fmt.Errorf("tcodec: %s: reading stop %d transfer count: %w", path, i, err)
		}
		transfers := make([]network.Transfer, transferCount)
		for t := range transfers {
			var target uint32
			var walk int32
			if err := binary.Read(r, binary.LittleEndian, &target); err != nil {
				return nil, fmt.Errorf("tcodec: %s: reading stop %d transfer %d target: %w", path, i, t, err)
			}
			if err := binary.Read(r, binary.LittleEndian, &walk); err != nil {
				return nil, fmt.Errorf("tcodec: %s: reading stop %d transfer %d walk: %w", path, i, t, err)
			}
			transfers[t] = network.Transfer{TargetStopID: int(target), WalkSeconds: int(walk)}
		}

		stops[i] = network.StopInput{
			ID:        int(id),
			Name:      name,
			Lat:       lat,
			Lon:       lon,
			RouteIDs:  fromInt32Slice(routeIDs),
			Transfers: transfers,
		}
	}

	return stops, nil
}

// WriteStops serializes stops to a v2 stops artifact at path.
func WriteStops(path string, stops []network.StopInput) error {
	w, f, err := newWriter(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeMagic(w, magicStopsV2); err != nil {
		return err
	}
	if err := writeVersion(w); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(stops))); err != nil {
		return err
	}
	for _, s := range stops {
		if err := binary.Write(w, binary.LittleEndian, uint32(s.ID)); err != nil {
			return err
		}
		if err := writeString(w, s.Name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, s.Lat); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, s.Lon); err != nil {
			return err
		}
		if err := writeInt32Slice(w, toInt32Slice(s.RouteIDs)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s.Transfers))); err != nil {
			return err
		}
		for _, tr := range s.Transfers {
			if err := binary.Write(w, binary.LittleEndian, uint32(tr.TargetStopID)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, int32(tr.WalkSeconds)); err != nil {
				return err
			}
		}
	}

	return w.Flush()
}
