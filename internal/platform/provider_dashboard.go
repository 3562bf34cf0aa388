package platform

// DashboardProvider pushes an event onto the existing websocket hub so
// connected dashboard clients see it live, the same broadcast mechanism
// checker.Scheduler already uses for metric updates.
type DashboardProvider struct {
	broadcast func(interface{})
}

// NewDashboardProvider wraps a websocket hub's broadcast function.
func NewDashboardProvider(broadcast func(interface{})) *DashboardProvider {
	return &DashboardProvider{broadcast: broadcast}
}

func (p *DashboardProvider) Name() string { return "dashboard" }

func (p *DashboardProvider) Send(event Event) error {
	if p.broadcast == nil {
		return nil
	}
	p.broadcast(map[string]interface{}{
		"type": "alert",
		"data": map[string]interface{}{
			"source":   event.Source,
			"ruleId":   event.RuleID,
			"severity": event.Severity,
			"title":    event.Title,
			"message":  event.Message,
			"labels":   event.Labels,
			"time":     event.Time,
		},
	})
	return nil
}
