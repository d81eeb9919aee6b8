package server

// Status is the web server's connection state, numbered like the TCP
// states of the embedded server it mirrors.
type Status int

const (
	StatusClosed Status = iota
	StatusListen
	StatusSynSent
	StatusSynRcvd
	StatusEstablished
	StatusFinWait1
	StatusFinWait2
	StatusCloseWait
	StatusLastAck
	StatusTimeWait
)

var statusNames = [...]string{
	StatusClosed:      "CLOSED",
	StatusListen:      "LISTEN",
	StatusSynSent:     "SYN_SENT",
	StatusSynRcvd:     "SYN_RCVD",
	StatusEstablished: "ESTABLISHED",
	StatusFinWait1:    "FIN_WAIT_1",
	StatusFinWait2:    "FIN_WAIT_2",
	StatusCloseWait:   "CLOSE_WAIT",
	StatusLastAck:     "LAST_ACK",
	StatusTimeWait:    "TIME_WAIT",
}

// String returns the state name, or "UNKNOWN" for out-of-range values.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "UNKNOWN"
	}
	return statusNames[s]
}
