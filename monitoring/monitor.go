// Package monitoring turns a running simulation into a web server that can be
// inspected and controlled from a browser.
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
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/desim/monitoring/web"
	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/execution"
	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Execution is the part of the manager that the monitor controls.
type Execution interface {
	Pause()
	Resume()
	Stop()
	State() execution.State
	Iterations() uint64
}

// Director is the part of the director that the monitor inspects.
type Director interface {
	hooking.Hookable

	Name() string
	Now() timing.Tag
	State() de.State
	StopTime() timing.VTime
	QueueLen() int
	PendingEvents() []*de.Event
	Model() *modeling.Model
	Depth(a modeling.Actor) (int, bool)
	IsDisabled(a modeling.Actor) bool
}

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation. The monitor is a hook of the director.
type Monitor struct {
	execution  Execution
	director   Director
	portNumber int

	registry *prometheus.Registry
	metrics  metrics

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	timeBar          *ProgressBar

	clientsLock sync.Mutex
	clients     map[*client]bool

	serverLock sync.Mutex
	url        string
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		clients:  make(map[*client]bool),
	}

	m.metrics = newMetrics(m.registry)

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterExecution registers the manager that runs the simulation.
func (m *Monitor) RegisterExecution(e Execution) {
	m.execution = e
}

// RegisterDirector registers the director and starts observing it.
func (m *Monitor) RegisterDirector(d Director) {
	m.director = d
	d.AcceptHook(m)

	if stop := d.StopTime(); !stop.IsInfinite() {
		m.timeBar = m.CreateProgressBar("Model time", uint64(stop))
	}
}

// Registry returns the registry that holds the monitor's metrics.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Func observes the director. It updates the metrics and the progress and
// pushes the firings to the connected clients.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case de.HookPosEventQueued:
		m.metrics.queued.Inc()
		m.metrics.queueLen.Set(float64(m.director.QueueLen()))
	case de.HookPosTagAdvanced:
		tag := ctx.Item.(timing.Tag)
		m.metrics.modelTime.Set(tag.Time.InSec())
		m.metrics.queueLen.Set(float64(m.director.QueueLen()))

		if m.timeBar != nil {
			m.timeBar.Set(uint64(tag.Time))
		}

		m.broadcast(eventMsg{Type: "tag", Time: tag.Time.InSec(),
			Microstep: tag.Microstep})
	case de.HookPosAfterFire:
		f := ctx.Item.(de.Firing)
		m.metrics.firings.WithLabelValues(f.Actor.Name()).Inc()
		m.broadcast(eventMsg{Type: "fired", Actor: f.Actor.Name(),
			Time: f.Tag.Time.InSec(), Microstep: f.Tag.Microstep})
	case de.HookPosActorDisabled:
		a := ctx.Item.(modeling.Actor)
		m.metrics.disabled.Inc()
		m.broadcast(eventMsg{Type: "disabled", Actor: a.Name()})
	}
}

// Handler returns the HTTP handler that serves the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/resume", m.resume)
	r.HandleFunc("/api/stop", m.stop)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/state", m.state)
	r.HandleFunc("/api/list_actors", m.listActors)
	r.HandleFunc("/api/actor/{name}", m.listActorDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/queue", m.listQueue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/events", m.streamEvents)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.serverLock.Lock()
	m.url = url
	m.serverLock.Unlock()

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

// URL returns the address of the server, or an empty string if the server is
// not started.
func (m *Monitor) URL() string {
	m.serverLock.Lock()
	defer m.serverLock.Unlock()

	return m.url
}

// OpenInBrowser opens the monitor page in the default browser.
func (m *Monitor) OpenInBrowser() error {
	m.serverLock.Lock()
	url := m.url
	m.serverLock.Unlock()

	if url == "" {
		return fmt.Errorf("monitoring server is not started")
	}

	return browser.OpenURL(url)
}

type stateRsp struct {
	Execution  string `json:"execution"`
	Director   string `json:"director"`
	Iterations uint64 `json:"iterations"`
}

func (m *Monitor) executionOr503(w http.ResponseWriter) bool {
	if m.execution == nil {
		http.Error(w, "no execution registered", http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) directorOr503(w http.ResponseWriter) bool {
	if m.director == nil {
		http.Error(w, "no director registered", http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) pause(w http.ResponseWriter, r *http.Request) {
	if !m.executionOr503(w) {
		return
	}

	m.execution.Pause()
	m.state(w, r)
}

func (m *Monitor) resume(w http.ResponseWriter, r *http.Request) {
	if !m.executionOr503(w) {
		return
	}

	m.execution.Resume()
	m.state(w, r)
}

func (m *Monitor) stop(w http.ResponseWriter, r *http.Request) {
	if !m.executionOr503(w) {
		return
	}

	m.execution.Stop()
	m.state(w, r)
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	rsp := stateRsp{}

	if m.execution != nil {
		rsp.Execution = m.execution.State().String()
		rsp.Iterations = m.execution.Iterations()
	}

	if m.director != nil {
		rsp.Director = m.director.State().String()
	}

	writeJSON(w, rsp)
}

type nowRsp struct {
	Time      float64 `json:"time"`
	Microstep uint64  `json:"microstep"`
	Tag       string  `json:"tag"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.directorOr503(w) {
		return
	}

	now := m.director.Now()

	writeJSON(w, nowRsp{
		Time:      now.Time.InSec(),
		Microstep: now.Microstep,
		Tag:       now.String(),
	})
}

type actorRsp struct {
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Disabled bool   `json:"disabled"`
}

func (m *Monitor) listActors(w http.ResponseWriter, _ *http.Request) {
	if !m.directorOr503(w) {
		return
	}

	actors := m.director.Model().Actors()
	rsp := make([]actorRsp, 0, len(actors))

	for _, a := range actors {
		depth, _ := m.director.Depth(a)
		rsp = append(rsp, actorRsp{
			Name:     a.Name(),
			Depth:    depth,
			Disabled: m.director.IsDisabled(a),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listActorDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	actor := m.findActorOr404(w, name)
	if actor == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(actor)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	ActorName string `json:"actor_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	if err := json.Unmarshal([]byte(jsonString), &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor := m.findActorOr404(w, req.ActorName)
	if actor == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(actor)
	serializer.SetMaxDepth(1)

	if err := serializer.SetEntryPoint(strings.Split(req.FieldName, ".")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dieOnErr(serializer.Serialize(w))
}

func (m *Monitor) findActorOr404(
	w http.ResponseWriter,
	name string,
) modeling.Actor {
	if !m.directorOr503(w) {
		return nil
	}

	actor, found := m.director.Model().ActorByName(name)
	if !found {
		http.Error(w, "Actor not found", http.StatusNotFound)
		return nil
	}

	return actor
}

type eventRsp struct {
	Actor     string  `json:"actor"`
	Time      float64 `json:"time"`
	Microstep uint64  `json:"microstep"`
	Depth     int     `json:"depth"`
	Pure      bool    `json:"pure"`
	What      string  `json:"what"`
}

func (m *Monitor) listQueue(w http.ResponseWriter, r *http.Request) {
	if !m.directorOr503(w) {
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events := m.director.PendingEvents()
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}

	rsp := make([]eventRsp, 0, len(events))
	for _, e := range events {
		rsp = append(rsp, eventRsp{
			Actor:     e.Actor().Name(),
			Time:      e.Time().InSec(),
			Microstep: e.Tag().Microstep,
			Depth:     e.Depth(),
			Pure:      e.IsPure(),
			What:      e.String(),
		})
	}

	writeJSON(w, rsp)
}

func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", limitStr)
	}

	return limit, nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
