// Package container wraps the Docker Engine API for the self-healing
// orchestrator: listing containers with derived health, and issuing
// start/stop/restart/kill recovery actions. Grounded on
// maintenance_orchestrator.py's docker_client usage (containers.list,
// containers.get, container.start/restart/kill, and the *.prune calls used
// by docker_system_cleanup).
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Status mirrors the health states the original assigns a service:
// healthy, warning (degraded but running), critical (down or failing its
// health check), and unknown (no Docker health check configured and no
// issues observed yet).
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// Health is a point-in-time health assessment for one container, grounded
// on the ServiceHealth dataclass.
type Health struct {
	Name          string
	Status        Status
	UptimeSeconds int64
	RestartCount  int
	MemoryPercent float64
	Issues        []string
}

// Collaborator is the Container Collaborator: the thin seam between the
// self-healing orchestrator and the Docker Engine, so recovery logic can be
// tested against a fake without a daemon.
type Collaborator interface {
	ListHealth(ctx context.Context) ([]Health, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Kill(ctx context.Context, name string) error
	SystemCleanup(ctx context.Context) (CleanupReport, error)
}

// CleanupReport summarizes a docker_system_cleanup pass.
type CleanupReport struct {
	ContainersRemoved int
	ImagesRemoved     int
	NetworksRemoved   int
	VolumesRemoved    int
	SpaceReclaimedMB  float64
}

// dockerCollaborator is the real, daemon-backed Collaborator.
type dockerCollaborator struct {
	cli *client.Client
}

// New connects to the local Docker daemon using the standard DOCKER_HOST /
// API-version-negotiation environment, mirroring docker.from_env().
func New() (Collaborator, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("container: connecting to docker: %w", err)
	}
	return &dockerCollaborator{cli: cli}, nil
}

const (
	criticalMemoryPercent = 95.0
	warningMemoryPercent  = 85.0
	frequentRestartCount  = 5
)

// ListHealth assesses every container (running or not), grounded on
// check_service_health: container status, configured health check,
// restarting state, memory usage, and restart frequency each contribute to
// the derived Status.
func (d *dockerCollaborator) ListHealth(ctx context.Context) ([]Health, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("container: listing containers: %w", err)
	}

	out := make([]Health, 0, len(containers))
	for _, c := range containers {
		name := containerName(c)
		h := Health{Name: name}

		switch c.State {
		case "running":
			d.assessRunning(ctx, c.ID, &h)
		case "exited", "dead":
			h.Status = StatusCritical
			h.Issues = append(h.Issues, fmt.Sprintf("container not running: %s", c.State))
		default:
			h.Status = StatusWarning
			h.Issues = append(h.Issues, fmt.Sprintf("unknown container status: %s", c.State))
		}

		out = append(out, h)
	}
	return out, nil
}

func (d *dockerCollaborator) assessRunning(ctx context.Context, id string, h *Health) {
	h.Status = StatusHealthy

	inspect, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		h.Status = StatusWarning
		h.Issues = append(h.Issues, fmt.Sprintf("inspect failed: %v", err))
		return
	}

	h.RestartCount = inspect.RestartCount
	if created, err := time.Parse(time.RFC3339Nano, inspect.Created); err == nil {
		h.UptimeSeconds = int64(time.Since(created).Seconds())
	}

	if inspect.State != nil {
		if inspect.State.Health != nil {
			switch inspect.State.Health.Status {
			case "healthy":
				h.Status = StatusHealthy
			case "unhealthy":
				h.Status = StatusCritical
				h.Issues = append(h.Issues, "container health check failed")
			}
		}
		if inspect.State.Restarting {
			h.Status = StatusWarning
			h.Issues = append(h.Issues, "container is restarting")
		}
	}

	stats, err := d.cli.ContainerStatsOneShot(ctx, id)
	if err == nil {
		defer stats.Body.Close()
		if usage, limit, ok := decodeMemoryStats(stats.Body); ok && limit > 0 {
			h.MemoryPercent = (usage / limit) * 100
			switch {
			case h.MemoryPercent > criticalMemoryPercent:
				h.Status = StatusCritical
				h.Issues = append(h.Issues, fmt.Sprintf("critical memory usage: %.1f%%", h.MemoryPercent))
			case h.MemoryPercent > warningMemoryPercent:
				if h.Status != StatusCritical {
					h.Status = StatusWarning
				}
				h.Issues = append(h.Issues, fmt.Sprintf("high memory usage: %.1f%%", h.MemoryPercent))
			}
		}
	}

	if h.RestartCount > frequentRestartCount {
		if h.Status != StatusCritical {
			h.Status = StatusWarning
		}
		h.Issues = append(h.Issues, fmt.Sprintf("frequent restarts: %d", h.RestartCount))
	}
}

func (d *dockerCollaborator) Start(ctx context.Context, name string) error {
	return d.cli.ContainerStart(ctx, name, container.StartOptions{})
}

func (d *dockerCollaborator) Stop(ctx context.Context, name string) error {
	return d.cli.ContainerStop(ctx, name, container.StopOptions{})
}

func (d *dockerCollaborator) Restart(ctx context.Context, name string) error {
	return d.cli.ContainerRestart(ctx, name, container.StopOptions{})
}

func (d *dockerCollaborator) Kill(ctx context.Context, name string) error {
	return d.cli.ContainerKill(ctx, name, "SIGKILL")
}

// SystemCleanup prunes stopped containers, dangling images, unused
// networks and volumes, grounded on docker_system_cleanup.
func (d *dockerCollaborator) SystemCleanup(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport

	containersReport, err := d.cli.ContainersPrune(ctx, filtersArgs())
	if err != nil {
		return report, fmt.Errorf("container: pruning containers: %w", err)
	}
	report.ContainersRemoved = len(containersReport.ContainersDeleted)
	report.SpaceReclaimedMB += float64(containersReport.SpaceReclaimed) / (1024 * 1024)

	imagesReport, err := d.cli.ImagesPrune(ctx, filtersArgs())
	if err != nil {
		return report, fmt.Errorf("container: pruning images: %w", err)
	}
	report.ImagesRemoved = len(imagesReport.ImagesDeleted)
	report.SpaceReclaimedMB += float64(imagesReport.SpaceReclaimed) / (1024 * 1024)

	networksReport, err := d.cli.NetworksPrune(ctx, filtersArgs())
	if err != nil {
		return report, fmt.Errorf("container: pruning networks: %w", err)
	}
	report.NetworksRemoved = len(networksReport.NetworksDeleted)

	volumesReport, err := d.cli.VolumesPrune(ctx, filtersArgs())
	if err != nil {
		return report, fmt.Errorf("container: pruning volumes: %w", err)
	}
	report.VolumesRemoved = len(volumesReport.VolumesDeleted)
	report.SpaceReclaimedMB += float64(volumesReport.SpaceReclaimed) / (1024 * 1024)

	return report, nil
}

func containerName(c container.Summary) string {
	if len(c.Names) > 0 {
		return trimSlash(c.Names[0])
	}
	return c.ID[:12]
}

func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
