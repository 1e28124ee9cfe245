package main

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanet-platform/corepkt/logging"
	"github.com/yanet-platform/corepkt/packet"
	"github.com/yanet-platform/corepkt/pool"
)

var rootCmdArgs struct {
	ConfigPath string
}

var rootCmd = &cobra.Command{
	Use:   "echoresponder",
	Short: "Generate synthetic ICMPv4 Echo Requests and respond to them",
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&rootCmdArgs.ConfigPath, "config", "c", "", "Path to the configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := DefaultConfig()
	if rootCmdArgs.ConfigPath != "" {
		loaded, err := LoadConfig(rootCmdArgs.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	registry := pool.NewRegistry()
	ref := registry.Bind(cfg.WorkerID, cfg.DataRoom)
	workerPool := ref.For(cfg.WorkerID)

	log.Infow("echoresponder starting",
		"count", cfg.Count,
		"worker_id", cfg.WorkerID,
		"data_room", cfg.DataRoom,
	)

	srcMAC := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	srcIP := netip.MustParseAddr("192.0.2.1")
	dstIP := netip.MustParseAddr("192.0.2.2")

	for i := 0; i < cfg.Count; i++ {
		seq := uint16(i)
		req, err := BuildEchoRequest(workerPool, srcMAC, dstMAC, srcIP, dstIP, 1, seq, []byte("echoresponder"))
		if err != nil {
			log.Errorw("failed to build request", "seq", seq, "error", err)
			continue
		}

		mark := Respond(workerPool, req)
		switch mark.Disposition() {
		case packet.DispositionAbort:
			log.Errorw("responder aborted", "seq", seq)
			mark.Envelope().Free()
		case packet.DispositionDrop:
			log.Warnw("responder dropped request", "seq", seq)
			mark.Envelope().Free()
		case packet.DispositionEmitAndDrop:
			reply := mark.Envelope()
			log.Infow("responder emitted reply", "seq", seq, "bytes", reply.DataLen())
			mark.DropEnvelope().Free()
			reply.Free()
		default:
			reply := mark.Envelope()
			log.Infow("responder emitted reply", "seq", seq, "bytes", reply.DataLen())
			reply.Free()
		}
	}

	return nil
}
