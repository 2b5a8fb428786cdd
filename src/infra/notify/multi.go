package notify

// Sink is the common shape of every notification sink.
type Sink interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Info(msg string) {
	for _, s := range m {
		s.Info(msg)
	}
}

func (m Multi) Warning(msg string) {
	for _, s := range m {
		s.Warning(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, s := range m {
		s.Error(msg)
	}
}
