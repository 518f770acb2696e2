// Command kfly-tui is an interactive live dashboard for a connected
// KFly device: attitude, IMU, RC input and system status update in
// place as datagrams arrive over the serial link.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kfly-project/kfly-comm/pkg/hostconfig"
	"github.com/kfly-project/kfly-comm/pkg/kfly"
	"github.com/kfly-project/kfly-comm/pkg/serialtransport"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	configPath := hostconfig.DefaultConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg, _, err := hostconfig.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	codec := kfly.NewCodec()
	m := newModel(cfg)

	p := tea.NewProgram(m, tea.WithOutput(stdout))
	ids := attachDashboard(codec, p)
	defer detachDashboard(codec, ids)

	serialtransport.Open(ctx, cfg.Serial.Port, cfg.Serial.Baud, codec,
		serialtransport.WithReconnectInterval(time.Duration(cfg.Serial.ReconnectMs)*time.Millisecond),
		serialtransport.WithReadBufferSize(cfg.Serial.ReadBufBytes),
	)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintln(stderr, "tui error:", err)
		return 1
	}
	return 0
}

// model is the dashboard's bubbletea state: the most recently received
// value of each telemetry datagram this program cares about.
type model struct {
	cfg hostconfig.Config

	status    kfly.SystemStatus
	haveStat  bool
	imu       kfly.IMUData
	haveIMU   bool
	attitude  kfly.EstimationAttitude
	haveAtt   bool
	rc        kfly.RCValues
	haveRC    bool
	lastDebug string
	updates   int
}

func newModel(cfg hostconfig.Config) *model {
	return &model{cfg: cfg}
}

// statusMsg, imuMsg, attitudeMsg, rcMsg and debugMsg wrap the decoded
// datagrams as bubbletea messages, sent from the codec's dispatch
// callbacks via the tea.Program created in run.
type statusMsg kfly.SystemStatus
type imuMsg kfly.IMUData
type attitudeMsg kfly.EstimationAttitude
type rcMsg kfly.RCValues
type debugMsg string

func attachDashboard(codec *kfly.Codec, p *tea.Program) []detachable {
	return []detachable{
		{kfly.GetSystemStatus, kfly.RegisterCallback(codec, kfly.GetSystemStatus, func(v kfly.SystemStatus) {
			p.Send(statusMsg(v))
		})},
		{kfly.GetIMUData, kfly.RegisterCallback(codec, kfly.GetIMUData, func(v kfly.IMUData) {
			p.Send(imuMsg(v))
		})},
		{kfly.GetEstimationAttitude, kfly.RegisterCallback(codec, kfly.GetEstimationAttitude, func(v kfly.EstimationAttitude) {
			p.Send(attitudeMsg(v))
		})},
		{kfly.GetRCValues, kfly.RegisterCallback(codec, kfly.GetRCValues, func(v kfly.RCValues) {
			p.Send(rcMsg(v))
		})},
		{kfly.DebugMessage, kfly.RegisterCallback(codec, kfly.DebugMessage, func(v kfly.DebugMessagePayload) {
			p.Send(debugMsg(nullTerminated(v.Text[:])))
		})},
	}
}

type detachable struct {
	cmd kfly.Command
	id  kfly.HandlerID
}

func detachDashboard(codec *kfly.Codec, ids []detachable) {
	for _, d := range ids {
		codec.ReleaseCallback(d.cmd, d.id)
	}
}

func nullTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		switch v.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case statusMsg:
		m.status, m.haveStat = kfly.SystemStatus(v), true
		m.updates++
	case imuMsg:
		m.imu, m.haveIMU = kfly.IMUData(v), true
		m.updates++
	case attitudeMsg:
		m.attitude, m.haveAtt = kfly.EstimationAttitude(v), true
		m.updates++
	case rcMsg:
		m.rc, m.haveRC = kfly.RCValues(v), true
		m.updates++
	case debugMsg:
		m.lastDebug = string(v)
		m.updates++
	}
	return m, nil
}

func (m *model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kfly-tui  %s @ %d baud  (%d updates)\n\n", m.cfg.Serial.Port, m.cfg.Serial.Baud, m.updates)

	if m.haveStat {
		fmt.Fprintf(&b, "status    armed=%-5v in-air=%-5v battery=%.2fV  uptime=%.1fs  cpu=%.0f%%\n",
			m.status.MotorsArmed, m.status.InAir, m.status.BatteryVoltage, m.status.UpTime, m.status.CPUUsage)
	} else {
		b.WriteString("status    (waiting...)\n")
	}

	if m.haveAtt {
		q := m.attitude.Q
		fmt.Fprintf(&b, "attitude  q=[%.3f %.3f %.3f %.3f]  rate=[%.2f %.2f %.2f]\n",
			q.W, q.X, q.Y, q.Z, m.attitude.AngularRate.X, m.attitude.AngularRate.Y, m.attitude.AngularRate.Z)
	} else {
		b.WriteString("attitude  (waiting...)\n")
	}

	if m.haveIMU {
		a := m.imu.Accelerometer
		g := m.imu.Gyroscope
		fmt.Fprintf(&b, "imu       accel=[%.2f %.2f %.2f]  gyro=[%.2f %.2f %.2f]  temp=%.1fC\n",
			a.X, a.Y, a.Z, g.X, g.Y, g.Z, m.imu.Temperature)
	} else {
		b.WriteString("imu       (waiting...)\n")
	}

	if m.haveRC {
		fmt.Fprintf(&b, "rc        connected=%-5v rssi=%d  ch0-3=%v\n",
			m.rc.ActiveConnection, m.rc.RSSI, m.rc.ChannelValue[:4])
	} else {
		b.WriteString("rc        (waiting...)\n")
	}

	if m.lastDebug != "" {
		fmt.Fprintf(&b, "\ndebug: %s\n", m.lastDebug)
	}

	b.WriteString("\n(q to quit)\n")
	return b.String()
}
