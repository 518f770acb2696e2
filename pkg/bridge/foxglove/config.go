package foxglove

// Config controls the websocket bridge that streams decoded KFly
// telemetry out to a Foxglove Studio (or any JSON-websocket) client.
type Config struct {
	WSAddr      string
	Topic       string
	SchemaName  string
	ParentFrame string
	FrameID     string
	SendBuf     int
}

// DefaultConfig returns sane defaults for a bench/dev session.
func DefaultConfig() Config {
	return Config{
		WSAddr:      "127.0.0.1:8765",
		Topic:       "kfly/telemetry",
		SchemaName:  "kfly.Telemetry",
		ParentFrame: "world",
		FrameID:     "kfly",
		SendBuf:     256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WSAddr == "" {
		c.WSAddr = d.WSAddr
	}
	if c.Topic == "" {
		c.Topic = d.Topic
	}
	if c.SchemaName == "" {
		c.SchemaName = d.SchemaName
	}
	if c.ParentFrame == "" {
		c.ParentFrame = d.ParentFrame
	}
	if c.FrameID == "" {
		c.FrameID = d.FrameID
	}
	if c.SendBuf <= 0 {
		c.SendBuf = d.SendBuf
	}
	return c
}
