// Package monitoring turns a simulation into a small web server for external
// observation and control. It is debug instrumentation, not the application's
// API surface.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling.
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/dinebot/dinesim/engine"
	"github.com/dinebot/dinesim/metrics"
)

// A Monitor exposes a running simulation over HTTP and, as a ProgressSink,
// always holds the latest published snapshot.
type Monitor struct {
	eng        *engine.Engine
	portNumber int
	url        string

	mu           sync.Mutex
	lastProgress engine.Progress
	lastReport   *metrics.SimulationReport
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is being monitored.
func (m *Monitor) RegisterEngine(e *engine.Engine) {
	m.eng = e
}

// PublishProgress stores the latest progress snapshot.
func (m *Monitor) PublishProgress(p engine.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastProgress = p
}

// PublishCompleted stores the final report of the run.
func (m *Monitor) PublishCompleted(r *metrics.SimulationReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastReport = r
}

// URL returns the address the monitor serves on, available after
// StartServer.
func (m *Monitor) URL() string {
	return m.url
}

// OpenInBrowser opens the monitor URL in the local browser.
func (m *Monitor) OpenInBrowser() {
	if m.url == "" {
		return
	}

	if err := browser.OpenURL(m.url); err != nil {
		fmt.Fprintf(os.Stderr, "cannot open browser: %s\n", err)
	}
}

// StartServer starts the monitor as a web server, with a custom port if one
// was set.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseSimulation)
	r.HandleFunc("/api/continue", m.continueSimulation)
	r.HandleFunc("/api/stop", m.stopSimulation)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.progress)
	r.HandleFunc("/api/report", m.report)
	r.HandleFunc("/api/world", m.world)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	m.url = fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()
}

func (m *Monitor) pauseSimulation(w http.ResponseWriter, _ *http.Request) {
	if err := m.eng.PauseSimulation(); err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "%s", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueSimulation(w http.ResponseWriter, _ *http.Request) {
	if err := m.eng.ResumeSimulation(); err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "%s", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) stopSimulation(w http.ResponseWriter, _ *http.Request) {
	if err := m.eng.StopSimulation(); err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "%s", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.eng.Clock().Now()
	fmt.Fprintf(w, "{\"now\":%q}", now.Format(time.RFC3339Nano))
}

func (m *Monitor) progress(w http.ResponseWriter, _ *http.Request) {
	// Serve a fresh snapshot; the stored one is only as fresh as the last
	// broadcast.
	p := m.eng.GetProgress()

	writeJSON(w, p)
}

func (m *Monitor) report(w http.ResponseWriter, _ *http.Request) {
	r := m.eng.GetReport()
	if r == nil {
		m.mu.Lock()
		r = m.lastReport
		m.mu.Unlock()
	}

	if r == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("no report available"))
		dieOnErr(err)
		return
	}

	writeJSON(w, r)
}

func (m *Monitor) world(w http.ResponseWriter, _ *http.Request) {
	snapshot := m.eng.World()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(snapshot)
	serializer.SetMaxDepth(3)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
