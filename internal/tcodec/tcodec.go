// Package tcodec reads and writes the binary artifacts a preprocessing run
// produces for one period: a stops file and a routes file, both little
// endian and both self-describing via a four-byte magic that also encodes a
// format version.
//
// Readers peek the magic before deciding how to interpret the rest of the
// file, so a v1 artifact produced by an older preprocessor build still loads
// correctly: v1 route files store trips in whatever order the source GTFS
// happened to emit them and the loader stable-sorts by first-stop departure
// before building a *network.Network; v2 files are written pre-sorted and
// skip that pass.
package tcodec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
)

var (
	magicStopsV1  = [4]byte{'R', 'S', 'T', 'S'}
	magicStopsV2  = [4]byte{'R', 'S', 'T', '2'}
	magicRoutesV1 = [4]byte{'R', 'R', 'T', 'S'}
	magicRoutesV2 = [4]byte{'R', 'R', 'T', '2'}
)

// currentFormatVersion is written between the magic and the record count of
// every artifact this package produces. It is a format revision, distinct
// from the v1/v2 magic (which selects the on-disk trip layout); readers
// reject any other value.
const currentFormatVersion uint16 = 1

func writeVersion(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, currentFormatVersion)
}

func readVersion(r io.Reader) (uint16, error) {
	var v uint16
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("reading format version: %w", err)
	}
	if v != currentFormatVersion {
		return 0, fmt.Errorf("unsupported format version %d", v)
	}
	return v, nil
}

func writeMagic(w io.Writer, magic [4]byte) error {
	_, err := w.Write(magic[:])
	return err
}

func peekMagic(r *bufio.Reader) ([4]byte, error) {
	b, err := r.Peek(4)
	if err != nil {
		return [4]byte{}, fmt.Errorf("tcodec: reading magic: %w", err)
	}
	var m [4]byte
	copy(m[:], b)
	_, _ = r.Discard(4)
	return m, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeInt32Slice(w io.Writer, vals []int32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vals))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, vals)
}

func readInt32Slice(r io.Reader) ([]int32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	vals := make([]int32, n)
	if n == 0 {
		return vals, nil
	}
	if err := binary.Read(r, binary.LittleEndian, vals); err != nil {
		return nil, err
	}
	return vals, nil
}

// readFixedInt32Slice reads n int32s with no length prefix, for fields whose
// count is already known from an earlier header value.
func readFixedInt32Slice(r io.Reader, n int) ([]int32, error) {
	vals := make([]int32, n)
	if n == 0 {
		return vals, nil
	}
	if err := binary.Read(r, binary.LittleEndian, vals); err != nil {
		return nil, err
	}
	return vals, nil
}

// deltaEncode returns the successive differences of row, so that a cumulative
// sum over the result reconstructs row exactly (the first output equals
// row[0], the delta from an implicit zero).
func deltaEncode(row []int32) []int32 {
	out := make([]int32, len(row))
	var prev int32
	for i, v := range row {
		out[i] = v - prev
		prev = v
	}
	return out
}

// deltaDecode replaces row's cumulative deltas with the absolute values they
// encode, in place.
func deltaDecode(row []int32) {
	var sum int32
	for i, d := range row {
		sum += d
		row[i] = sum
	}
}

func toInt32Slice(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, v := range ids {
		out[i] = int32(v)
	}
	return out
}

func fromInt32Slice(vals []int32) []int {
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out
}

// stableSortTripsByFirstStop reorders a route's schedule (and its parallel
// trip id slice) so trips are non-decreasing in their first-stop departure,
// the ordering the round loop's binary search over trips assumes. It is a
// stable sort so trips with an identical first-stop time keep their
// original relative order.
func stableSortTripsByFirstStop(numStops int, schedule []int32, tripIDs []int32) {
	trips := len(tripIDs)
	if trips < 2 {
		return
	}
	order := make([]int, trips)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ta, tb := order[a], order[b]
		return schedule[ta*numStops] < schedule[tb*numStops]
	})

	newSchedule := make([]int32, len(schedule))
	newTripIDs := make([]int32, trips)
	for newPos, oldPos := range order {
		copy(newSchedule[newPos*numStops:(newPos+1)*numStops], schedule[oldPos*numStops:(oldPos+1)*numStops])
		newTripIDs[newPos] = tripIDs[oldPos]
	}
	copy(schedule, newSchedule)
	copy(tripIDs, newTripIDs)
}

func newReader(path string) (*bufio.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("tcodec: opening %s: %w", path, err)
	}
	return bufio.NewReader(f), f, nil
}

func newWriter(path string) (*bufio.Writer, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("tcodec: creating %s: %w", path, err)
	}
	return bufio.NewWriter(f), f, nil
}
