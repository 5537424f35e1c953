package sim

import "fmt"

// IncompleteTransmissionError is returned when querying the total delay of a
// packet that has not reached its destination yet.
type IncompleteTransmissionError struct {
	ID PacketID
}

func (e *IncompleteTransmissionError) Error() string {
	return fmt.Sprintf("packet %s: delay requested before the packet reached its destination", e.ID)
}

// UnexpectedFaultError is returned when fault tracking declares more link
// failures than the event generator injected. The simulation expects exactly
// the injected failures, so this aborts the run.
type UnexpectedFaultError struct {
	Link     Link
	Declared int
	Injected int
}

func (e *UnexpectedFaultError) Error() string {
	return fmt.Sprintf("declared link fault %v exceeds injected failures (%d declared, %d injected)",
		e.Link, e.Declared, e.Injected)
}

// ConfigError reports an invalid component configuration, such as an AWGR
// stage outside {1, 3}.
type ConfigError struct {
	Component string
	Detail    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Detail)
}
