package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

type execInfo struct {
	Property string
	Value    string
}

// An ExecRecorder logs how and when the recording process ran, into an
// exec_info table alongside the trace tables.
type ExecRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []execInfo
}

// NewExecRecorder creates an ExecRecorder on the given DataRecorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tableName, execInfo{})

	return e
}

// Start captures the start time, command line, and working directory.
func (e *ExecRecorder) Start() {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.entries = append(e.entries, execInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	e.entries = append(e.entries, execInfo{"Command", cmd})

	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	e.entries = append(e.entries, execInfo{"Working Directory", filepath.Dir(ex)})
}

// End writes the captured entries plus the end time into the database.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(e.tableName, execInfo{"End Time", endTime})

	e.entries = nil

	e.recorder.Flush()
}
