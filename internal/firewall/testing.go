package firewall

import "github.com/safing/peerguard/internal/netutils"

// RecordingActuator is a narrow test double recording every Ban/Unban
// call, per spec §9's suggestion that the actuator capability "keeps the
// engine trivially testable with a recording mock."
type RecordingActuator struct {
	Banned   []netutils.Address
	Unbanned []netutils.Address
}

// Ban records addr.
func (r *RecordingActuator) Ban(addr netutils.Address) {
	r.Banned = append(r.Banned, addr)
}

// Unban records addr.
func (r *RecordingActuator) Unban(addr netutils.Address) {
	r.Unbanned = append(r.Unbanned, addr)
}

// RecordingLogger records every audit line's tag and address.
type RecordingLogger struct {
	Lines []LoggedLine
}

// LoggedLine is one recorded audit log call.
type LoggedLine struct {
	Tag  string
	Addr netutils.Address
}

// Log records one line.
func (r *RecordingLogger) Log(tag string, addr netutils.Address) {
	r.Lines = append(r.Lines, LoggedLine{Tag: tag, Addr: addr})
}
