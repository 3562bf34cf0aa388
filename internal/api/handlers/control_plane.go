package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/millsmillsymills/controlplane/internal/alertengine"
	"github.com/millsmillsymills/controlplane/internal/backup"
	"github.com/millsmillsymills/controlplane/internal/federation"
	"github.com/millsmillsymills/controlplane/internal/platform"
	"github.com/millsmillsymills/controlplane/internal/selfheal"
)

// federationMetricExport and federationAlertExport are the wire shapes
// sibling nodes pull from /api/v1/federation/metrics and
// /api/v1/federation/alerts.
type federationMetricExport struct {
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Weight float64           `json:"weight"`
	Labels map[string]string `json:"labels"`
}

type federationAlertExport struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
}

// AlertEngineHandler exposes the Alert Orchestrator's live state.
type AlertEngineHandler struct {
	engine *alertengine.Orchestrator
}

func NewAlertEngineHandler(engine *alertengine.Orchestrator) *AlertEngineHandler {
	return &AlertEngineHandler{engine: engine}
}

func (h *AlertEngineHandler) GetActiveAlerts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.engine.ActiveAlerts()})
}

func (h *AlertEngineHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
		"correlationGroups": h.engine.CorrelationGroups(),
		"droppedSamples":    h.engine.DroppedSamples(),
	}})
}

// AcknowledgeAlert marks an active alert acknowledged by the caller.
func (h *AlertEngineHandler) AcknowledgeAlert(c *fiber.Ctx) error {
	var body struct {
		AckBy string `json:"ackBy"`
	}
	_ = c.BodyParser(&body)
	if body.AckBy == "" {
		body.AckBy = "api"
	}
	if err := h.engine.Acknowledge(c.Params("id"), body.AckBy); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": fiber.Map{
			"code": "ACK_FAILED", "message": "failed to acknowledge alert",
		}})
	}
	return c.JSON(fiber.Map{"success": true})
}

// SuppressAlert mutes an alert without marking it resolved.
func (h *AlertEngineHandler) SuppressAlert(c *fiber.Ctx) error {
	if err := h.engine.Suppress(c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": fiber.Map{
			"code": "SUPPRESS_FAILED", "message": "failed to suppress alert",
		}})
	}
	return c.JSON(fiber.Map{"success": true})
}

// SelfHealHandler exposes the Self-Healing Orchestrator's live state.
type SelfHealHandler struct {
	orchestrator *selfheal.Orchestrator
}

func NewSelfHealHandler(o *selfheal.Orchestrator) *SelfHealHandler {
	return &SelfHealHandler{orchestrator: o}
}

func (h *SelfHealHandler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.orchestrator.Snapshot()})
}

func (h *SelfHealHandler) GetStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
		"stats":             h.orchestrator.StatsSnapshot(),
		"droppedRecoveries": h.orchestrator.DroppedRecoveries(),
		"history":           h.orchestrator.History(),
	}})
}

// Unblacklist clears a service's blacklist status. The blacklist never
// expires on its own, so this is the only way to make a service eligible
// for recovery again short of a process restart.
func (h *SelfHealHandler) Unblacklist(c *fiber.Ctx) error {
	h.orchestrator.Unblacklist(c.Params("service"))
	return c.JSON(fiber.Map{"success": true})
}

// BackupHandler exposes the Backup Orchestrator's live state.
type BackupHandler struct {
	orchestrator *backup.Orchestrator
}

func NewBackupHandler(o *backup.Orchestrator) *BackupHandler {
	return &BackupHandler{orchestrator: o}
}

func (h *BackupHandler) GetTargets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.orchestrator.Targets()})
}

func (h *BackupHandler) GetHistory(c *fiber.Ctx) error {
	targetID := c.Params("targetId")
	history, err := h.orchestrator.History(targetID, 20)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": fiber.Map{
			"code": "FETCH_ERROR", "message": "failed to fetch backup history",
		}})
	}
	return c.JSON(fiber.Map{"success": true, "data": history})
}

// FederationHandler exposes the Federation Orchestrator's live state, and
// accepts inbound metrics/alerts/pushes from sibling nodes.
type FederationHandler struct {
	orchestrator *federation.Orchestrator
	alertEngine  *alertengine.Orchestrator
	sink         *platform.Sink
}

func NewFederationHandler(o *federation.Orchestrator, alertEngine *alertengine.Orchestrator, sink *platform.Sink) *FederationHandler {
	return &FederationHandler{orchestrator: o, alertEngine: alertEngine, sink: sink}
}

// ExportMetrics serves this node's own recent metric values to a
// requesting sibling, the counterpart of nodeClient.fetchMetrics on the
// other side of the federation link.
func (h *FederationHandler) ExportMetrics(c *fiber.Ctx) error {
	out := []federationMetricExport{}
	for _, name := range federation.KnownMetricNames() {
		points, err := h.sink.Recent(name, 5*time.Minute)
		if err != nil || len(points) == 0 {
			continue
		}
		latest := points[len(points)-1]
		value, ok := latest.Fields["value"]
		if !ok {
			continue
		}
		out = append(out, federationMetricExport{Name: name, Value: value, Weight: 1.0, Labels: latest.Tags})
	}
	return c.JSON(out)
}

// ExportAlerts serves this node's currently firing alerts to a requesting
// sibling, the counterpart of nodeClient.fetchAlerts.
func (h *FederationHandler) ExportAlerts(c *fiber.Ctx) error {
	active := h.alertEngine.ActiveAlerts()
	out := make([]federationAlertExport, 0, len(active))
	for _, a := range active {
		labels := make(map[string]string, len(a.Labels)+1)
		for k, v := range a.Labels {
			labels[k] = v
		}
		labels["severity"] = string(a.Severity)
		out = append(out, federationAlertExport{Name: a.RuleID, Labels: labels})
	}
	return c.JSON(out)
}

func (h *FederationHandler) GetNodes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.orchestrator.Nodes()})
}

func (h *FederationHandler) GetGlobalMetric(c *fiber.Ctx) error {
	name := c.Params("metricName")
	metrics, err := h.orchestrator.RecentGlobalMetrics(name, 50)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": fiber.Map{
			"code": "FETCH_ERROR", "message": "failed to fetch global metric",
		}})
	}
	return c.JSON(fiber.Map{"success": true, "data": metrics})
}

// IncomingAlert receives a propagated cross-site alert pushed by a peer
// node, mirroring what the original only logged (see DESIGN.md).
func (h *FederationHandler) IncomingAlert(c *fiber.Ctx) error {
	var alert federation.CrossSiteAlert
	if err := c.BodyParser(&alert); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": fiber.Map{
			"code": "INVALID_REQUEST", "message": "invalid cross-site alert payload",
		}})
	}
	if err := h.orchestrator.ReceiveAlert(alert); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": fiber.Map{
			"code": "STORE_ERROR", "message": "failed to record incoming cross-site alert",
		}})
	}
	return c.JSON(fiber.Map{"success": true, "data": nil})
}
