package world

import (
	"container/heap"
	"errors"
	"math"
)

// ErrNoPathFound is returned when the goal is blocked, occupied by a
// blocking entity, or topologically disconnected from the start. It is
// reported to the requester as a no-op, never treated as fatal.
var ErrNoPathFound = errors.New("no path found")

// Path is the ordered tile sequence an entity will traverse, one tile
// per tick, excluding the start tile and including the goal.
type Path []Position

// PathOptions tune a single pathfinder invocation.
type PathOptions struct {
	// Diagonal enables 8-connected search; false restricts to the four
	// cardinal directions.
	Diagonal bool
	// MaxStepHeight is the largest effective-height difference a single
	// step may climb or drop.
	MaxStepHeight float64
	// MoverID is excluded from entity-occupancy checks so an entity
	// never blocks itself.
	MoverID int64
	// IgnoreGoalEntity skips the occupancy check on the goal tile,
	// used when interacting with an adjacent object whose tile the
	// requester already holds.
	IgnoreGoalEntity bool
	// DoorBlocked marks the door tile unwalkable for this search. Set
	// when the room is at its entity cap so the door stays clear for
	// arrivals.
	DoorBlocked bool
}

// pathNode is a frontier entry. Priority order: lowest cost, then
// closest to the goal by squared straight-line distance, then lowest
// x, then lowest y — making equal-cost routes deterministic.
type pathNode struct {
	x, y     int
	cost     int
	goalDist int
}

type nodeHeap []pathNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.goalDist != b.goalDist {
		return a.goalDist < b.goalDist
	}
	if a.x != b.x {
		return a.x < b.x
	}
	return a.y < b.y
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(pathNode)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// FindPath computes the shortest tile route from start to goal on m.
// Cost is 1 per step regardless of direction. The pathfinder holds no
// state; it is safe to call concurrently for different rooms but must
// run inside the owning room's tick for a live map.
func FindPath(m *RoomMap, start, goal Position, opts PathOptions) (Path, error) {
	if !m.InBounds(goal.X, goal.Y) || !m.IsWalkable(goal.X, goal.Y) {
		return nil, ErrNoPathFound
	}
	if opts.DoorBlocked && m.IsDoor(goal.X, goal.Y) {
		return nil, ErrNoPathFound
	}
	if !opts.IgnoreGoalEntity && m.IsEntityBlocked(goal.X, goal.Y, opts.MoverID) {
		return nil, ErrNoPathFound
	}
	if start.SameTile(goal) {
		return Path{}, nil
	}

	parents := make(map[gridCell]gridCell, 64)
	costs := make(map[gridCell]int, 64)

	startCell := gridCell{start.X, start.Y}
	goalCell := gridCell{goal.X, goal.Y}
	costs[startCell] = 0

	frontier := &nodeHeap{{x: start.X, y: start.Y, cost: 0, goalDist: start.DistanceSquared(goal)}}
	heap.Init(frontier)

	directions := 8
	if !opts.Diagonal {
		directions = 4
	}

	for frontier.Len() > 0 {
		cur := heap.Pop(frontier).(pathNode)
		curCell := gridCell{cur.x, cur.y}
		if cur.cost > costs[curCell] {
			continue // stale frontier entry
		}
		if curCell == goalCell {
			return buildPath(parents, startCell, goalCell, m), nil
		}

		curHeight := m.EffectiveHeight(cur.x, cur.y)
		for i := 0; i < directions; i++ {
			r := i
			if !opts.Diagonal {
				r = i * 2 // cardinal rotations 0,2,4,6
			}
			nx := cur.x + rotationDX[r]
			ny := cur.y + rotationDY[r]
			next := gridCell{nx, ny}
			if !m.InBounds(nx, ny) || !m.IsWalkable(nx, ny) {
				continue
			}
			if opts.DoorBlocked && m.IsDoor(nx, ny) {
				continue
			}
			if math.Abs(m.EffectiveHeight(nx, ny)-curHeight) > opts.MaxStepHeight {
				continue
			}
			// Standing entities block every step; the goal tile is
			// handled by the pre-check above so re-testing it here
			// keeps mid-route tiles strict.
			if next != goalCell && m.IsEntityBlocked(nx, ny, opts.MoverID) {
				continue
			}
			newCost := cur.cost + 1
			if known, seen := costs[next]; seen && known <= newCost {
				continue
			}
			costs[next] = newCost
			parents[next] = curCell
			heap.Push(frontier, pathNode{
				x:        nx,
				y:        ny,
				cost:     newCost,
				goalDist: (Position{X: nx, Y: ny}).DistanceSquared(goal),
			})
		}
	}
	return nil, ErrNoPathFound
}

// gridCell keys the pathfinder bookkeeping maps.
type gridCell struct{ x, y int }

// buildPath walks parents back from goal to start and reverses,
// filling in each tile's effective height.
func buildPath(parents map[gridCell]gridCell, start, goal gridCell, m *RoomMap) Path {
	var reversed []gridCell
	for c := goal; c != start; c = parents[c] {
		reversed = append(reversed, c)
	}
	path := make(Path, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		c := reversed[i]
		path = append(path, Position{X: c.x, Y: c.y, Z: m.EffectiveHeight(c.x, c.y)})
	}
	return path
}
