package taxi

import (
	"github.com/zeu5/taxi-rl/types"
)

// MaxObstacles allowed for a grid of the given size
func MaxObstacles(gridSize int) int {
	return gridSize - 1
}

// ValidateConfig checks the grid size and the obstacle layout.
// Obstacles must be distinct, inside the grid, off the start, pickup and
// destination cells, and must not disconnect any free cell from the rest.
func ValidateConfig(config types.GridConfig) error {
	n := config.GridSize
	if n != 3 && n != 4 {
		return types.NewConfigError("grid size must be 3 or 4, got %d", n)
	}
	if len(config.Obstacles) > MaxObstacles(n) {
		return types.NewConfigError("maximum %d obstacles allowed for %dx%d grid, got %d", MaxObstacles(n), n, n, len(config.Obstacles))
	}

	reserved := map[types.Position]string{
		Start:                "taxi start",
		{X: n - 1, Y: n - 1}: "passenger pickup",
		{X: 0, Y: n - 1}:     "destination",
	}
	seen := make(map[types.Position]bool)
	for _, o := range config.Obstacles {
		if o.X < 0 || o.X >= n || o.Y < 0 || o.Y >= n {
			return types.NewConfigError("obstacle %s is outside the %dx%d grid", o, n, n)
		}
		if what, ok := reserved[o]; ok {
			return types.NewConfigError("obstacle %s cannot be placed on the %s cell", o, what)
		}
		if seen[o] {
			return types.NewConfigError("duplicate obstacle %s", o)
		}
		seen[o] = true
	}

	if !AllReachable(n, seen) {
		return types.NewConfigError("obstacle layout disconnects the grid")
	}
	return nil
}

// AllReachable runs a BFS from the start cell and checks that every non obstacle cell is visited
func AllReachable(n int, obstacles map[types.Position]bool) bool {
	if obstacles[Start] {
		return false
	}
	visited := Reachable(n, obstacles, Start)
	return len(visited) == n*n-len(obstacles)
}

// Reachable returns the set of cells reachable from the given cell
func Reachable(n int, obstacles map[types.Position]bool, from types.Position) map[types.Position]bool {
	visited := map[types.Position]bool{from: true}
	queue := []types.Position{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, a := range []types.Action{types.North, types.South, types.East, types.West} {
			next := move(cur, a)
			if next.X < 0 || next.X >= n || next.Y < 0 || next.Y >= n {
				continue
			}
			if obstacles[next] || visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}
