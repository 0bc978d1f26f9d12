// Command peerguardd runs the host-based UDP flood and multi-port scanner
// mitigator described in the project's specification: it observes inbound
// UDP traffic via nfqueue, classifies source addresses, and installs
// iptables ban rules for abusive peers, modeled on the HaxWall firewall's
// original dispatch loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/safing/peerguard/internal/actuator"
	"github.com/safing/peerguard/internal/capture"
	"github.com/safing/peerguard/internal/cidr"
	"github.com/safing/peerguard/internal/clock"
	"github.com/safing/peerguard/internal/config"
	"github.com/safing/peerguard/internal/daemon"
	"github.com/safing/peerguard/internal/firewall"
	"github.com/safing/peerguard/internal/log"
	"github.com/safing/peerguard/internal/metrics"
	"github.com/safing/peerguard/internal/mgr"
)

var (
	configPath       string
	logPath          string
	blacklistPath    string
	exceptionsPath   string
	queueV4          uint16
	queueV6          uint16
	enableV6         bool
	blockDataCenters bool
)

var rootCmd = &cobra.Command{
	Use:   "peerguardd",
	Short: "host-based UDP flood and multi-port scanner mitigator",
	RunE:  run,
}

func init() {
	cobra.MousetrapHelpText = ""

	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a tunables YAML file (optional)")
	flags.StringVar(&logPath, "log-file", "firewall.log", "audit log file path")
	flags.StringVar(&blacklistPath, "blacklist", "", "path to a CIDR blacklist YAML file (optional)")
	flags.StringVar(&exceptionsPath, "exceptions", "", "path to a CIDR exceptions YAML file (optional)")
	flags.Uint16Var(&queueV4, "queue-v4", 17140, "nfqueue number for inbound IPv4 traffic")
	flags.Uint16Var(&queueV6, "queue-v6", 17160, "nfqueue number for inbound IPv6 traffic")
	flags.BoolVar(&enableV6, "ipv6", false, "also open the IPv6 nfqueue (its frames are not classified: the decoder accepts IPv4 only)")
	flags.BoolVar(&blockDataCenters, "block-data-centers", false, "enable the CIDR blacklist (spec's BLOCK_DATA_CENTERS switch)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	tunables, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("block-data-centers") {
		tunables.BlockDataCenters = blockDataCenters
	}

	audit, err := log.New(logPath)
	if err != nil {
		return err
	}
	defer audit.Close()

	act, err := actuator.New()
	if err != nil {
		return fmt.Errorf("failed to initialize firewall actuator: %w", err)
	}

	recorder := metrics.NewRecorder(audit)
	fw := firewall.New(clock.Real{},
		firewall.WithActuator(act),
		firewall.WithAuditLogger(recorder),
		firewall.WithTunables(tunables),
	)

	var exceptions *cidr.Matcher
	if exceptionsPath != "" {
		exceptions, err = cidr.LoadFile(exceptionsPath)
		if err != nil {
			return err
		}
	}
	var blacklist *cidr.Matcher
	if tunables.BlockDataCenters && blacklistPath != "" {
		blacklist, err = cidr.LoadFile(blacklistPath)
		if err != nil {
			return err
		}
	}
	fw.SetBlacklist(blacklist, exceptions)

	localAddrs, err := capture.LocalIPv4Addresses()
	if err != nil {
		return err
	}
	if len(localAddrs) == 0 {
		return fmt.Errorf("failed to find interface addresses")
	}
	for _, addr := range localAddrs {
		fw.AddWhitelist(addr)
		audit.Log("Protecting", addr)
	}

	dispatcher := daemon.NewDispatcher(fw)

	group := mgr.NewGroup()
	// dispatcher is added first so mgr.Group starts it before, and stops it
	// after, every module that feeds it: it must be consuming before any
	// producer can deliver, and must keep consuming until every producer
	// has stopped sending.
	group.Add("dispatcher", dispatcher)
	group.Add("capture", daemon.NewCaptureModule(dispatcher, queueV4, queueV6, enableV6))
	group.Add("query", daemon.NewQueryModule(dispatcher, recorder))
	group.Add("purge", daemon.NewPurgeModule(dispatcher, time.Duration(tunables.PurgeInterval)*time.Second))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := group.Start(ctx); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	group.Stop()
	fw.Shutdown()
	return nil
}
