package protocol

// COLLISIONS (physics -> server): one batch of impacts for a tick.
type CollisionsMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick,omitempty"`
	Collisions      []CollisionRec `json:"collisions"`
}

type CollisionRec struct {
	First          uint64     `json:"first"`
	Second         uint64     `json:"second"`
	VelocityFirst  [3]float64 `json:"velocity_first"`
	VelocitySecond [3]float64 `json:"velocity_second"`
	Point          [3]float64 `json:"point"`
	NormalOnFirst  [3]float64 `json:"normal_on_first"`
	Timestep       float64    `json:"timestep"`
}

// TICK (server -> client)
type TickMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Digest          string       `json:"digest"`
	Bodies          []BodyReport `json:"bodies"`
}

type BodyReport struct {
	ID         uint64   `json:"id"`
	Destroyed  int      `json:"destroyed"`
	Snapped    int      `json:"snapped"`
	Separated  bool     `json:"separated"`
	Fragments  []uint64 `json:"fragments"`
	HeldEnergy float64  `json:"held_energy,omitempty"`
	LostEnergy float64  `json:"lost_energy,omitempty"`
	Render     Render   `json:"render"`
}

type Render struct {
	Size      [3]int `json:"size"`
	StatusRLE string `json:"status_rle"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
