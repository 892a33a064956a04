package routing

import "github.com/transitcore/raptorcore/internal/network"

// Infinity is the sentinel "unreached" arrival value. It is chosen well
// below the int32 range some parent fields share, so arithmetic against it
// (e.g. "+ walk seconds") never overflows in practice for any realistic
// schedule.
const Infinity = 1 << 30

// noParent marks "no parent" across every struct-of-arrays parent field.
const noParent = -1

// State holds the per-query mutable arrays the round loop reads and writes.
// It is allocated once per network and reused across queries; Reset clears
// only the rounds a previous query actually touched, keeping steady-state
// query cost independent of K.
//
// State is not safe for concurrent use: one State serves one caller at a
// time. Callers needing concurrency hold one State per worker (or per
// goroutine pulled from a pool keyed by period).
type State struct {
	net *network.Network
	k   int // rounds allocated (bestArrival has k+1 rows)

	bestArrival [][]int

	// Parent tuple per (round, stop), seven parallel arrays as specified:
	// stop, round, route (or -1 for a transfer), boarding departure time,
	// trip index (or -1), boarding position (or -1), alighting position
	// (or -1).
	parentStop      [][]int32
	parentRound     [][]int32
	parentRoute     [][]int32
	parentDeparture [][]int32
	parentTrip      [][]int32
	parentBoardPos  [][]int32
	parentAlightPos [][]int32

	markedThis []bool
	markedPrev []bool
	markedList []int32
	prevList   []int32

	routeSeen []bool // dedup scratch for CollectRoutesServingPreviousMarks
	routeBuf  []int32

	lastMaxRoundUsed int
}

// NewState allocates a State sized for net with up to maxK rounds. Passing a
// generous maxK up front (the facade's configured ceiling, not necessarily
// every query's K) avoids reallocating the parent matrices when a later
// query asks for more rounds within that ceiling.
func NewState(net *network.Network, maxK int) *State {
	s := &State{}
	s.resize(net, maxK)
	return s
}

func (s *State) resize(net *network.Network, maxK int) {
	n := net.StopCount()
	rows := maxK + 1

	s.net = net
	s.k = maxK
	s.bestArrival = make([][]int, rows)
	s.parentStop = make([][]int32, rows)
	s.parentRound = make([][]int32, rows)
	s.parentRoute = make([][]int32, rows)
	s.parentDeparture = make([][]int32, rows)
	s.parentTrip = make([][]int32, rows)
	s.parentBoardPos = make([][]int32, rows)
	s.parentAlightPos = make([][]int32, rows)

	for k := 0; k < rows; k++ {
		s.bestArrival[k] = make([]int, n)
		s.parentStop[k] = make([]int32, n)
		s.parentRound[k] = make([]int32, n)
		s.parentRoute[k] = make([]int32, n)
		s.parentDeparture[k] = make([]int32, n)
		s.parentTrip[k] = make([]int32, n)
		s.parentBoardPos[k] = make([]int32, n)
		s.parentAlightPos[k] = make([]int32, n)
		s.clearRound(k)
	}

	s.markedThis = make([]bool, n)
	s.markedPrev = make([]bool, n)
	s.markedList = make([]int32, 0, n)
	s.prevList = make([]int32, 0, n)
	s.routeSeen = make([]bool, net.RouteCount())
	s.routeBuf = make([]int32, 0, net.RouteCount())
	s.lastMaxRoundUsed = 0
}

// EnsureCapacity resizes the state if the active network or the requested K
// exceeds what was last allocated. A period switch or a caller raising K
// beyond the facade's original ceiling both funnel through here.
func (s *State) EnsureCapacity(net *network.Network, k int) {
	if s.net != net || k > s.k {
		max := k
		if s.k > max {
			max = s.k
		}
		s.resize(net, max)
	}
}

func (s *State) clearRound(k int) {
	arr := s.bestArrival[k]
	for i := range arr {
		arr[i] = Infinity
	}
	pStop, pRound, pRoute := s.parentStop[k], s.parentRound[k], s.parentRoute[k]
	pDep, pTrip, pBoard, pAlight := s.parentDeparture[k], s.parentTrip[k], s.parentBoardPos[k], s.parentAlightPos[k]
	for i := range pStop {
		pStop[i] = noParent
		pRound[i] = noParent
		pRoute[i] = noParent
		pDep[i] = noParent
		pTrip[i] = noParent
		pBoard[i] = noParent
		pAlight[i] = noParent
	}
}

// Reset clears only the rounds touched by the previous query, and the mark
// vectors, ready for a fresh search.
func (s *State) Reset() {
	for k := 0; k <= s.lastMaxRoundUsed; k++ {
		s.clearRound(k)
	}
	for _, i := range s.prevList {
		s.markedPrev[i] = false
	}
	for _, i := range s.markedList {
		s.markedThis[i] = false
	}
	s.markedList = s.markedList[:0]
	s.prevList = s.prevList[:0]
	s.lastMaxRoundUsed = 0
}

func (s *State) mark(i int) {
	if !s.markedThis[i] {
		s.markedThis[i] = true
		s.markedList = append(s.markedList, int32(i))
	}
}

// shiftMarks copies the current mark set into "previous" and clears it,
// ready for the next round's relaxations to populate.
func (s *State) shiftMarks() {
	for _, i := range s.prevList {
		s.markedPrev[i] = false
	}
	s.prevList = s.prevList[:0]
	for _, i := range s.markedList {
		s.markedPrev[i] = true
		s.prevList = append(s.prevList, i)
	}
	for _, i := range s.markedList {
		s.markedThis[i] = false
	}
	s.markedList = s.markedList[:0]
}

func (s *State) setParent(k, i, stop, round, route, departure, trip, board, alight int) {
	s.parentStop[k][i] = int32(stop)
	s.parentRound[k][i] = int32(round)
	s.parentRoute[k][i] = int32(route)
	s.parentDeparture[k][i] = int32(departure)
	s.parentTrip[k][i] = int32(trip)
	s.parentBoardPos[k][i] = int32(board)
	s.parentAlightPos[k][i] = int32(alight)
}

// BestArrival returns bestArrival[k][i] after a completed Route call.
func (s *State) BestArrival(k, i int) int { return s.bestArrival[k][i] }
