package cli

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/output"
	"github.com/okorienev/palantir-agent/internal/rate"
	"github.com/okorienev/palantir-agent/internal/server"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send sample APM records to a running agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		network, _ := cmd.Flags().GetString("network")
		format, _ := cmd.Flags().GetString("format")
		count, _ := cmd.Flags().GetInt("count")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		perSecond, _ := cmd.Flags().GetFloat64("rate")
		noColor, _ := cmd.Flags().GetBool("no-color")

		payload, err := encodeSample(SampleRecord(), network, format)
		if err != nil {
			return err
		}

		conn, err := net.DialTimeout(network, addr, timeout)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", addr, err)
		}
		defer conn.Close()

		pacer := rate.NewPacer(perSecond)
		sent := 0
		for i := 0; i < count; i++ {
			if err := pacer.Wait(cmd.Context()); err != nil {
				return err
			}
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				return err
			}
			n, err := conn.Write(payload)
			if err != nil {
				return fmt.Errorf("sending record %d: %w", i+1, err)
			}
			sent += n
		}

		fmt.Fprint(cmd.OutOrStdout(), output.NewFormatter(noColor).FormatSent(count, sent, addr))
		return nil
	},
}

// encodeSample encodes one record for network. TCP streams need framing:
// a varint length prefix for protobuf, a trailing newline for JSON.
func encodeSample(r *apm.Record, network, format string) ([]byte, error) {
	var payload []byte
	switch format {
	case server.FormatProtobuf:
		payload = server.EncodeProtobuf(r)
	case server.FormatJSON:
		var err error
		if payload, err = server.EncodeJSON(r); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	switch network {
	case server.TypeUDP:
		return payload, nil
	case server.TypeTCP:
		if format == server.FormatJSON {
			return append(payload, '\n'), nil
		}
		return server.AppendFrame(nil, payload), nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// SampleRecord returns a representative web request with several database
// and cache calls.
func SampleRecord() *apm.Record {
	m := func(name string, us uint64) apm.Measurement {
		return apm.Measurement{Name: name, ElapsedUS: us}
	}
	return &apm.Record{
		Realm:           "example-realm",
		Application:     "example-application",
		ApplicationHash: "3fde5",
		ActionKind:      "http",
		ActionName:      "controllers.example",
		TotalUS:         55_000_000,
		Measurements: []apm.Measurement{
			m("postgres", 3_692), m("postgres", 10_512), m("postgres", 4_781), m("postgres", 21_309),
			m("redis", 891), m("redis", 1_293), m("redis", 2_341), m("redis", 914),
			m("redis", 5_712), m("redis", 692), m("redis", 1_039),
		},
	}
}

func init() {
	sendCmd.Flags().String("addr", "127.0.0.1:5545", "Agent listener address")
	sendCmd.Flags().String("network", server.TypeUDP, "Transport: udp or tcp")
	sendCmd.Flags().String("format", server.FormatProtobuf, "Payload format: protobuf or json")
	sendCmd.Flags().IntP("count", "n", 1, "Number of records to send")
	sendCmd.Flags().Float64("rate", 0, "Records per second, 0 sends as fast as possible")
	sendCmd.Flags().Duration("timeout", 5*time.Second, "Dial and write timeout")
	sendCmd.Flags().Bool("no-color", false, "Disable colored output")
}
