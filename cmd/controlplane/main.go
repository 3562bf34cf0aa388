package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/millsmillsymills/controlplane/internal/alertengine"
	"github.com/millsmillsymills/controlplane/internal/api"
	"github.com/millsmillsymills/controlplane/internal/api/websocket"
	"github.com/millsmillsymills/controlplane/internal/backup"
	"github.com/millsmillsymills/controlplane/internal/checker"
	"github.com/millsmillsymills/controlplane/internal/collector"
	"github.com/millsmillsymills/controlplane/internal/config"
	"github.com/millsmillsymills/controlplane/internal/container"
	"github.com/millsmillsymills/controlplane/internal/crypto"
	"github.com/millsmillsymills/controlplane/internal/database"
	"github.com/millsmillsymills/controlplane/internal/federation"
	"github.com/millsmillsymills/controlplane/internal/models"
	"github.com/millsmillsymills/controlplane/internal/platform"
	"github.com/millsmillsymills/controlplane/internal/selfheal"
)

func main() {
	configPath := flag.String("config", "", "path to config.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := crypto.Init(cfg.Security.EncryptionKey); err != nil {
		log.Fatalf("failed to init crypto: %v", err)
	}

	if err := database.Connect(cfg.Database.Path); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	sink := platform.NewSink()
	clock := platform.NewClock()
	notifier := newNotifier(cfg)

	scheduler := checker.NewScheduler()
	collectorMgr := collector.NewCollectorManager(cfg.System.CollectInterval, cfg.System.StoreInterval)

	hub := websocket.NewHub()
	go hub.Run()
	scheduler.SetBroadcast(hub.GetBroadcastFunc())
	collectorMgr.SetBroadcast(hub.GetBroadcastFunc())
	notifier.Register(platform.NewDashboardProvider(hub.GetBroadcastFunc()))

	orchestrators := &api.Orchestrators{Sink: sink}

	if cfg.AlertEngine.Enabled {
		engine := alertengine.NewOrchestrator(sink, notifier, time.Duration(cfg.AlertEngine.DynamicThresholdTTL)*time.Second)
		stop := make(chan struct{})
		go engine.Run(stop)
		collectorMgr.SetOnMetricCollected(func(hostID, hostName string, metric *models.SystemMetric) {
			now := time.Now()
			engine.Submit(alertengine.Sample{MetricName: "cpu_usage_percent", Value: metric.CPUUsage, Labels: map[string]string{"host": hostID}, Time: now})
			engine.Submit(alertengine.Sample{MetricName: "memory_usage_percent", Value: metric.MemUsage, Labels: map[string]string{"host": hostID}, Time: now})
			engine.Submit(alertengine.Sample{MetricName: "disk_usage_percent", Value: metric.DiskUsage, Labels: map[string]string{"host": hostID}, Time: now})
		})
		orchestrators.AlertEngine = engine
		log.Println("[main] alert engine orchestrator started")
	}

	if cfg.SelfHealing.Enabled {
		containers, err := container.New()
		if err != nil {
			log.Printf("[main] self-healing disabled: docker client unavailable: %v", err)
		} else {
			healer := selfheal.New(containers, notifier, clock,
				cfg.SelfHealing.MaxRecoveryAttempts,
				time.Duration(cfg.SelfHealing.RecoveryCooldown)*time.Second,
				selfheal.WithLogRotationPaths(cfg.SelfHealing.LogRotationPaths),
			)
			if err := healer.Start(time.Duration(cfg.SelfHealing.CheckInterval)*time.Second, cfg.SelfHealing.MaintenanceWindowCron); err != nil {
				log.Printf("[main] failed to start self-healing orchestrator: %v", err)
			} else {
				orchestrators.SelfHeal = healer
				log.Println("[main] self-healing orchestrator started")
			}
		}
	}

	if cfg.Backup.Enabled {
		var cloud *backup.CloudStore
		if cfg.Backup.CloudEndpoint != "" {
			// CloudAccessID/CloudSecret may be stored in config as
			// crypto.Encrypt ciphertext rather than plaintext; Decrypt passes
			// plaintext values through unchanged, so this is safe either way.
			accessID, idErr := crypto.Decrypt(cfg.Backup.CloudAccessID)
			if idErr != nil {
				log.Printf("[main] decrypting cloud access id: %v", idErr)
				accessID = cfg.Backup.CloudAccessID
			}
			secret, secretErr := crypto.Decrypt(cfg.Backup.CloudSecret)
			if secretErr != nil {
				log.Printf("[main] decrypting cloud secret: %v", secretErr)
				secret = cfg.Backup.CloudSecret
			}
			cloud, err = backup.NewCloudStore(cfg.Backup.CloudEndpoint, accessID, secret, cfg.Backup.CloudBucket, cfg.Backup.CloudUseSSL)
			if err != nil {
				log.Printf("[main] cloud backup storage unavailable: %v", err)
			}
		}
		archiver := backup.New(notifier, clock, cfg.Backup.WorkDir, cfg.Backup.WorkDir+"/local", cfg.Backup.WorkDir+"/network", cloud)
		targets := make([]backup.Target, 0, len(cfg.Backup.Targets))
		for _, t := range cfg.Backup.Targets {
			targets = append(targets, backup.Target{
				ID:              t.ID,
				Name:            t.Name,
				Type:            backup.TargetType(t.Type),
				Path:            t.Path,
				DSN:             t.DSN,
				Schedule:        t.Schedule,
				RetentionDays:   t.RetentionDays,
				StorageClass:    backup.StorageClass(t.StorageClass),
				BackupType:      backup.BackupType(t.BackupType),
				ExcludePatterns: t.ExcludePatterns,
				PreCommand:      t.PreCommand,
				PostCommand:     t.PostCommand,
				KeepCount:       t.KeepCount,
			})
		}
		if err := archiver.LoadTargets(targets); err != nil {
			log.Printf("[main] failed to load backup targets: %v", err)
		} else {
			orchestrators.Backup = archiver
			log.Printf("[main] backup orchestrator started with %d target(s)", len(targets))
		}
	}

	if cfg.Federation.Enabled {
		nodes := make([]federation.Node, 0, len(cfg.Federation.Nodes))
		for _, n := range cfg.Federation.Nodes {
			nodes = append(nodes, federation.Node{
				ID: n.ID, Name: n.Name, Type: federation.NodeType(n.Type),
				Endpoint: n.Endpoint, BearerKey: n.BearerKey,
			})
		}
		fed := federation.New(notifier, clock, cfg.Federation.LocalNodeID, nodes)
		if err := fed.Start(
			time.Duration(cfg.Federation.MetricInterval)*time.Second,
			time.Duration(cfg.Federation.HealthCheckInterval)*time.Second,
			time.Duration(cfg.Federation.AlertInterval)*time.Second,
		); err != nil {
			log.Printf("[main] failed to start federation orchestrator: %v", err)
		} else {
			orchestrators.Federation = fed
			log.Printf("[main] federation orchestrator started as node %q with %d peer(s)", cfg.Federation.LocalNodeID, len(nodes))
		}
	}

	clock.Start()

	app := fiber.New(fiber.Config{
		AppName:      "controlplane",
		ErrorHandler: defaultErrorHandler,
	})
	app.Get("/ws", websocket.WebSocketUpgrade(), hub.Handler())
	api.SetupRoutes(app, scheduler, collectorMgr, orchestrators)

	if err := scheduler.Start(cfg.Services); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	collectorMgr.Start()

	addr := cfg.Server.Host + ":" + itoa(cfg.Server.Port)
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()
	log.Printf("[main] control plane listening on %s", addr)

	waitForShutdown(app, scheduler, collectorMgr, clock)
}

// newNotifier builds the shared notifier and registers every channel the
// configuration enables.
func newNotifier(cfg *config.Config) *platform.Notifier {
	notifier := platform.NewNotifier()
	ch := cfg.Alerts.Channels

	if ch.Slack.Enabled {
		notifier.Register(platform.NewSlackProvider(ch.Slack.WebhookURL, ch.Slack.BotToken, ch.Slack.Channel))
	}
	if ch.Webhook.Enabled {
		notifier.Register(platform.NewWebhookProvider("webhook", ch.Webhook.URL))
	}
	if ch.Email.Enabled {
		notifier.Register(platform.NewEmailProvider(ch.Email.SMTP.Host, ch.Email.SMTP.Port, ch.Email.SMTP.Username, ch.Email.SMTP.Password, ch.Email.Recipients))
	}
	if ch.PagerDuty.Enabled {
		notifier.Register(platform.NewPagerDutyProvider(ch.PagerDuty.RoutingKey, ch.PagerDuty.EventsEndpoint))
	}
	if ch.SMS.Enabled {
		notifier.Register(platform.NewSMSProvider(ch.SMS.GatewayURL, ch.SMS.Recipients))
	}

	return notifier
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": fiber.Map{
		"code": "INTERNAL_ERROR", "message": err.Error(),
	}})
}

func waitForShutdown(app *fiber.App, scheduler *checker.Scheduler, collectorMgr *collector.CollectorManager, clock *platform.Clock) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("[main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clock.Stop()
	scheduler.Stop()
	collectorMgr.Stop()
	_ = app.ShutdownWithContext(ctx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
