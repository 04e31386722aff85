package driver

// Stage names one step of compiling a file.
type Stage string

const (
	StageLoad     Stage = "load"
	StageLower    Stage = "lower"
	StageOptimize Stage = "optimize"
	StageAnalyze  Stage = "analyze"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one file. Done and error events carry no stage.
type Event struct {
	File   string
	Stage  Stage
	Status Status
	Err    error
}

// ProgressSink receives events from Compile and CompileAll, possibly from
// several goroutines at once.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func (o Options) progress(file string, stage Stage, status Status, err error) {
	if o.Progress == nil {
		return
	}
	o.Progress.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err})
}
