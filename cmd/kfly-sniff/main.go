// Command kfly-sniff is a passive JSONL logger for a live KFly serial
// link: useful for debugging a device without standing up a full
// ground control station.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/kfly-project/kfly-comm/pkg/hostconfig"
	"github.com/kfly-project/kfly-comm/pkg/kfly"
	"github.com/kfly-project/kfly-comm/pkg/kflylog"
	"github.com/kfly-project/kfly-comm/pkg/serialtransport"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kfly-sniff", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", hostconfig.DefaultConfigPath, "host config TOML path")
	port := fs.String("port", "", "override serial.port")
	logPath := fs.String("log", "", "override log.path (\"-\" for stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, err := hostconfig.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return 1
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *logPath != "" {
		cfg.Log.Path = *logPath
	}

	var out io.Writer = stdout
	if cfg.Log.Path != "" && cfg.Log.Path != "-" {
		file, err := os.Create(cfg.Log.Path)
		if err != nil {
			fmt.Fprintln(stderr, "failed to open log file:", err)
			return 1
		}
		defer file.Close()
		out = file
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	codec := kfly.NewCodec()
	writer := kflylog.NewWriter(out)
	attachments := kflylog.Attach(codec, writer, subscribedCommands(cfg))
	defer kflylog.Detach(codec, attachments)

	link := serialtransport.Open(ctx, cfg.Serial.Port, cfg.Serial.Baud, codec,
		serialtransport.WithReconnectInterval(time.Duration(cfg.Serial.ReconnectMs)*time.Millisecond),
		serialtransport.WithReadBufferSize(cfg.Serial.ReadBufBytes),
		serialtransport.WithErrorHandler(func(err error) {
			fmt.Fprintln(stderr, "serial link error:", err)
		}),
	)

	for _, sub := range cfg.Subscribe {
		cmd, ok := kfly.CommandByName(sub.Command)
		if !ok {
			fmt.Fprintln(stderr, "unknown command in config:", sub.Command)
			continue
		}
		framed, err := kfly.GenerateSubscribe(kfly.PortUSB, cmd, sub.IntervalMs)
		if err != nil {
			fmt.Fprintln(stderr, "failed to build subscribe request:", err)
			continue
		}
		link.Write(ctx, framed)
	}

	<-ctx.Done()
	return 0
}

func subscribedCommands(cfg hostconfig.Config) []kfly.Command {
	cmds := make([]kfly.Command, 0, len(cfg.Subscribe))
	for _, sub := range cfg.Subscribe {
		if cmd, ok := kfly.CommandByName(sub.Command); ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}
