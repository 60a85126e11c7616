// SPDX-License-Identifier: AGPL-3.0-only

// Command ppppdial opens a socket toward a single printer over PPPP, runs
// the I/O driver (which answers whatever the peer sends), and logs the
// session state at debug level once a second until interrupted. It does not
// initiate the handshake itself and does not print SESSION_READY fields. It
// exists to exercise the library end-to-end rather than as a production
// fleet tool.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/log"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetlink/pppp/config"
	"github.com/fleetlink/pppp/driver"
	"github.com/fleetlink/pppp/metrics"
	"github.com/fleetlink/pppp/session"
	"github.com/fleetlink/pppp/wire"
)

func main() {
	var (
		host        = flag.String("host", "", "printer host or IP")
		duidHex     = flag.String("duid", "", "hex-encoded device unique identifier")
		configPath  = flag.String("config", "", "path to a TOML config overriding channel/driver tunables")
		wan         = flag.Bool("wan", false, "dial the WAN port instead of the LAN port")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus /metrics on this address")
	)
	versioninfo.AddFlag(flag.CommandLine)
	flag.Parse()

	runID, err := uuid.NewV4()
	if err != nil {
		runID = uuid.UUID{}
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ppppdial[" + runID.String()[:8] + "]",
	})

	if *host == "" || *duidHex == "" {
		logger.Fatal("both -host and -duid are required")
	}

	duid, err := wire.ParseDUID(*duidHex)
	if err != nil {
		logger.Fatal("parse duid", "err", err)
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("load config", "err", err)
		}
	}

	role := session.RoleLAN
	port := driver.LANPort
	if *wan {
		role = session.RoleWAN
		port = driver.WANPort
	}
	conn, err := driver.Dial(*host, port)
	if err != nil {
		logger.Fatal("dial", "err", err)
	}
	defer conn.Close()

	reg := prometheus.NewRegistry()
	chMetrics := metrics.NewChannel(reg)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	desc := session.Descriptor{DUID: duid, Host: *host, Port: uint16(port), Role: role}
	sess := session.NewWithMetrics(desc, cfg, chMetrics)
	recvTimeout, err := cfg.ReceiveTimeoutDuration()
	if err != nil {
		logger.Fatal("parse receive timeout", "err", err)
	}

	d := driver.New(conn, sess, recvTimeout)
	d.Start()

	ctx := make(chan os.Signal, 1)
	signal.Notify(ctx, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("dialing", "host", *host, "port", port, "duid", duid.String())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx:
			logger.Info("shutting down")
			d.Stop()
			return
		case <-ticker.C:
			logger.Debug("state", "value", fmt.Sprint(sess.State()))
		}
	}
}
