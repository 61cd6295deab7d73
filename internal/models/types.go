package models

// StageKind identifies one phase of the per-target pipeline
type StageKind string

const (
	StageEnumerate StageKind = "enumerate"
	StageProbe     StageKind = "probe"
	StagePortScan  StageKind = "portscan"
	StageHeaders   StageKind = "headers"
)

// Stages returns all stage kinds in canonical execution order
func Stages() []StageKind {
	return []StageKind{StageEnumerate, StageProbe, StagePortScan, StageHeaders}
}

// RunStatus represents the final state of a run
type RunStatus string

const (
	StatusRunning     RunStatus = "running"
	StatusComplete    RunStatus = "complete"
	StatusPartial     RunStatus = "partial"
	StatusInterrupted RunStatus = "interrupted"
)

// Protocol is the transport protocol of an open port
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// UnknownService is used when the port scanner cannot name the service
const UnknownService = "unknown"
