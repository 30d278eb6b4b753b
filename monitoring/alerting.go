// Package monitoring provides alerting capabilities for the listing render backend
package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType represents the type of alert
type AlertType string

const (
	AlertTypeFeedFailure       AlertType = "feed_failure"
	AlertTypeDispatchExhausted AlertType = "dispatch_exhausted"
	AlertTypeWorkersDown       AlertType = "workers_down"
	AlertTypeCacheFailure      AlertType = "cache_failure"
)

// Alert represents an alert
type Alert struct {
	ID          string            `json:"id"`
	Type        AlertType         `json:"type"`
	Severity    AlertSeverity     `json:"severity"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Timestamp   time.Time         `json:"timestamp"`
	Labels      map[string]string `json:"labels"`
	Resolved    bool              `json:"resolved"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
}

// AlertRule defines a rule for generating alerts
type AlertRule struct {
	Name        string
	Type        AlertType
	Severity    AlertSeverity
	Condition   func() bool
	Title       string
	Description string
	Labels      map[string]string
	Enabled     bool
}

// Notifier interface for sending alert notifications
type Notifier interface {
	Send(alert *Alert) error
	Name() string
}

// LogNotifier sends alerts to the log
type LogNotifier struct {
	logger *logrus.Logger
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Send(alert *Alert) error {
	level := logrus.InfoLevel
	switch alert.Severity {
	case SeverityHigh:
		level = logrus.WarnLevel
	case SeverityCritical:
		level = logrus.ErrorLevel
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id":   alert.ID,
		"alert_type": alert.Type,
		"severity":   alert.Severity,
		"labels":     alert.Labels,
	}).Log(level, fmt.Sprintf("ALERT: %s - %s", alert.Title, alert.Description))

	return nil
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// AlertManager manages alerts and notifications
type AlertManager struct {
	alerts    map[string]*Alert
	mutex     sync.RWMutex
	logger    *logrus.Logger
	rules     []AlertRule
	notifiers []Notifier
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewAlertManager creates a new alert manager
func NewAlertManager(logger *logrus.Logger) *AlertManager {
	ctx, cancel := context.WithCancel(context.Background())

	am := &AlertManager{
		alerts:    make(map[string]*Alert),
		logger:    logger,
		rules:     getDefaultAlertRules(),
		notifiers: []Notifier{NewLogNotifier(logger)},
		ctx:       ctx,
		cancel:    cancel,
	}

	go am.evaluateRules()

	return am
}

// getDefaultAlertRules returns the default alert rules
func getDefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			Name:        "Consecutive Feed Failures",
			Type:        AlertTypeFeedFailure,
			Severity:    SeverityHigh,
			Condition:   func() bool { return ConsecutiveFeedFailures() >= 3 },
			Title:       "Upstream listing feed unreachable",
			Description: "Three or more consecutive poll cycles failed to fetch the listing feed",
			Labels:      map[string]string{"service": "listing-render-backend"},
			Enabled:     true,
		},
		{
			Name:        "Dispatch Exhaustion",
			Type:        AlertTypeDispatchExhausted,
			Severity:    SeverityMedium,
			Condition:   func() bool { return DrainExhaustedDispatches() > 0 },
			Title:       "Listings abandoned after exhausting all workers",
			Description: "At least one listing could not be rendered by any registered worker",
			Labels:      map[string]string{"service": "listing-render-backend"},
			Enabled:     true,
		},
		{
			Name:        "Workers Down",
			Type:        AlertTypeWorkersDown,
			Severity:    SeverityCritical,
			Condition:   func() bool { return false }, // wired to the health aggregator at startup
			Title:       "No healthy rendering workers",
			Description: "The last health check found no healthy workers",
			Labels:      map[string]string{"service": "listing-render-backend"},
			Enabled:     true,
		},
	}
}

// evaluateRules runs the alert evaluation loop
func (am *AlertManager) evaluateRules() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-am.ctx.Done():
			return
		case <-ticker.C:
			am.evaluateAllRules()
		}
	}
}

// evaluateAllRules evaluates all enabled alert rules
func (am *AlertManager) evaluateAllRules() {
	am.mutex.RLock()
	rules := make([]AlertRule, len(am.rules))
	copy(rules, am.rules)
	am.mutex.RUnlock()

	for _, rule := range rules {
		if rule.Enabled && rule.Condition() {
			am.triggerAlert(rule)
		}
	}
}

// triggerAlert creates and sends an alert, deduplicating active alerts by type
func (am *AlertManager) triggerAlert(rule AlertRule) {
	alertID := fmt.Sprintf("%s-%d", rule.Type, time.Now().Unix())

	alert := &Alert{
		ID:          alertID,
		Type:        rule.Type,
		Severity:    rule.Severity,
		Title:       rule.Title,
		Description: rule.Description,
		Timestamp:   time.Now(),
		Labels:      rule.Labels,
		Resolved:    false,
	}

	am.mutex.Lock()
	for _, existing := range am.alerts {
		if existing.Type == rule.Type && !existing.Resolved {
			am.mutex.Unlock()
			return
		}
	}
	am.alerts[alertID] = alert
	am.mutex.Unlock()

	am.sendNotifications(alert)
}

// sendNotifications sends the alert to all notifiers
func (am *AlertManager) sendNotifications(alert *Alert) {
	for _, notifier := range am.notifiers {
		if err := notifier.Send(alert); err != nil {
			am.logger.WithError(err).WithField("notifier", notifier.Name()).Error("Failed to send alert notification")
		}
	}
}

// ResolveAlert resolves an alert
func (am *AlertManager) ResolveAlert(alertID string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if alert, exists := am.alerts[alertID]; exists {
		now := time.Now()
		alert.Resolved = true
		alert.ResolvedAt = &now

		am.logger.WithFields(logrus.Fields{
			"alert_id": alertID,
			"type":     alert.Type,
		}).Info("Alert resolved")
	}
}

// GetActiveAlerts returns all active (unresolved) alerts
func (am *AlertManager) GetActiveAlerts() []*Alert {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var active []*Alert
	for _, alert := range am.alerts {
		if !alert.Resolved {
			active = append(active, alert)
		}
	}

	return active
}

// AddNotifier adds a new notifier
func (am *AlertManager) AddNotifier(notifier Notifier) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	am.notifiers = append(am.notifiers, notifier)
}

// UpdateRuleCondition updates the condition function for a rule
func (am *AlertManager) UpdateRuleCondition(ruleName string, condition func() bool) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	for i, rule := range am.rules {
		if rule.Name == ruleName {
			am.rules[i].Condition = condition
			break
		}
	}
}

// Stop stops the alert manager
func (am *AlertManager) Stop() {
	am.cancel()
}
