package container

import (
	"encoding/json"
	"io"

	"github.com/docker/docker/api/types/filters"
)

// dockerStats is the subset of the /containers/{id}/stats response this
// package reads: memory usage and limit, matching the fields
// check_service_health pulls from stats['memory_stats'].
type dockerStats struct {
	MemoryStats struct {
		Usage float64 `json:"usage"`
		Limit float64 `json:"limit"`
	} `json:"memory_stats"`
}

func decodeMemoryStats(r io.Reader) (usage, limit float64, ok bool) {
	var s dockerStats
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return 0, 0, false
	}
	return s.MemoryStats.Usage, s.MemoryStats.Limit, true
}

func filtersArgs() filters.Args {
	return filters.NewArgs()
}
