package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/amine-amaach/uafacade/internal/config"
	"github.com/amine-amaach/uafacade/internal/log"
	"github.com/amine-amaach/uafacade/internal/mqtt"
	"github.com/amine-amaach/uafacade/internal/simulators"
	"github.com/amine-amaach/uafacade/internal/uaserver"
	"github.com/amine-amaach/uafacade/ports"
	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/types"
	"github.com/awcullen/opcua/ua"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	version               = "v0.1.0"
	monitorInterval       = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

// Run starts the demo server (when enabled), binds a facade to every
// configured sensor alarm and monitors them until SIGINT or SIGTERM.
func Run() {
	cfg := config.GetConfigs()
	logger := log.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.DisableTimestamp)
	printBanner(version)

	handleTTL, _ := cfg.NodeHandleTTL()
	requestTimeout, _ := cfg.RequestTimeout()
	if requestTimeout == 0 {
		requestTimeout = defaultRequestTimeout
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	wg := &sync.WaitGroup{}

	var srv *uaserver.UaSrvService
	if cfg.DemoServer.Enabled {
		var err error
		if srv, err = uaserver.NewUaSrvService(cfg.DemoServer, logger); err != nil {
			logger.WithField("Err", err).Fatalln("Couldn't create demo server ⛔")
		}
		for _, sensor := range cfg.DemoServer.Simulators {
			nodes, err := srv.AddLimitSensor(sensor)
			if err != nil {
				logger.WithField("Err", err).Fatalln("Couldn't add sensor ⛔")
			}
			sim := simulators.NewIoTSensorSim(sensor.SensorId, sensor.Mean, sensor.Std,
				int(sensor.DelayMin), int(sensor.DelayMax), sensor.Randomize)
			nodes.Simulate(ctx, sim, logger)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil {
				logger.WithField("Err", err).Errorln("Demo server stopped ⛔")
			}
		}()
	}

	ch, err := DialUaClient(ctx, cfg.Session, logger)
	if err != nil {
		logger.WithField("Err", err).Fatalln("Couldn't open OPC-UA session ⛔")
	}
	uaTransport := services.NewUaTransportSvc(ch, logger)
	uaTransport.SetRequestTimeout(requestTimeout)

	var transport ports.SessionTransport = uaTransport
	if cfg.Metrics.EnablePrometheus {
		instrumented, err := services.NewInstrumentedTransportSvc(uaTransport)
		if err != nil {
			logger.WithField("Err", err).Fatalln("Couldn't register metrics ⛔")
		}
		transport = instrumented
		metricsSrv := serveMetrics(cfg.Metrics.ListenAddr, logger)
		defer metricsSrv.Close()
	}

	session := services.NewSession(transport,
		services.WithLogger(logger),
		services.WithHandleTTL(handleTTL),
		services.WithRequestTimeout(requestTimeout),
		services.WithMaxConcurrentRequests(cfg.Cache.MaxConcurrentRequests),
	)

	alarms := bindAlarms(ctx, session, uaTransport, cfg.DemoServer.Simulators, logger)
	for _, alarm := range alarms {
		opCtx, opCancel := context.WithTimeout(ctx, requestTimeout)
		if err := InspectAlarm(opCtx, alarm, logger); err != nil {
			logger.WithFields(logrus.Fields{
				"Alarm": alarm.Object().NodeID(),
				"Err":   err,
			}).Errorln("Couldn't inspect alarm ⛔")
		}
		opCancel()
	}

	monitor := &AlarmMonitor{
		Alarms:      alarms,
		Interval:    monitorInterval,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Log:         logger,
	}
	var publisher *mqtt.AlarmPublisherSvc
	if cfg.MQTT.Enabled {
		if publisher, err = mqtt.NewAlarmPublisherSvc(ctx, cfg.MQTT, logger); err != nil {
			logger.WithField("Err", err).Fatalln("Couldn't set up MQTT publisher ⛔")
		}
		monitor.Publisher = publisher
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	<-ctx.Done()
	logger.Infoln("Shutting down 🔔")
	session.Close()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), requestTimeout)
	defer closeCancel()
	uaTransport.Close(closeCtx)
	if publisher != nil {
		publisher.Close(closeCtx)
	}
	if srv != nil {
		srv.Close()
	}
	wg.Wait()
}

func bindAlarms(ctx context.Context, session *services.Session, transport *services.UaTransportSvc, sensors []component.LimitSensor, logger *logrus.Logger) []*types.ExclusiveLimitAlarm {
	ns, ok, err := transport.NamespaceIndex(ctx, uaserver.NamespaceURI)
	if err != nil || !ok {
		logger.WithFields(logrus.Fields{
			"Namespace": uaserver.NamespaceURI,
			"Err":       err,
		}).Fatalln("Demo namespace not found on server ⛔")
	}
	alarms := make([]*types.ExclusiveLimitAlarm, 0, len(sensors))
	for _, sensor := range sensors {
		alarm, err := types.NewExclusiveLimitAlarm(session, ua.NodeIDString{NamespaceIndex: ns, ID: sensor.SensorId})
		if err != nil {
			logger.WithField("Err", err).Fatalln("Couldn't bind alarm ⛔")
		}
		alarms = append(alarms, alarm)
	}
	return alarms
}

func serveMetrics(addr string, logger *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithField("Err", err).Errorln("Metrics endpoint stopped ⛔")
		}
	}()
	logger.WithField("Addr", addr).Infoln("Serving metrics on /metrics ✅")
	return srv
}
