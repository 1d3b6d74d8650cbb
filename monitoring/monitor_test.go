package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/actors"
	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/execution"
	"github.com/sarchlab/desim/sim/timing"
	"go.uber.org/mock/gomock"
)

func get(h http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	return rec
}

func runToEnd(d *de.Director) {
	Expect(d.Initialize()).To(Succeed())

	for {
		res, err := d.Fire()
		Expect(err).NotTo(HaveOccurred())

		if res.Finished() {
			break
		}
	}
}

var _ = Describe("Monitor", func() {
	var (
		mockCtrl *gomock.Controller
		mockExec *MockExecution
		model    *actors.FeedbackModel
		director *de.Director
		m        *Monitor
		handler  http.Handler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockExec = NewMockExecution(mockCtrl)

		model = actors.NewFeedbackModel("Feedback", timing.Seconds(1), 2)
		director = de.MakeBuilder().
			WithStopTime(timing.Seconds(1)).
			Build("DE", model.Model)

		m = NewMonitor()
		m.RegisterExecution(mockExec)
		m.RegisterDirector(director)
		handler = m.Handler()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should observe the director", func() {
		Expect(director.Hooks()).To(ContainElement(m))
	})

	It("should report the current tag", func() {
		runToEnd(director)

		rec := get(handler, "/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(
			`{"time": 1, "microstep": 1, "tag": "(1s, 1)"}`))
	})

	It("should pause, resume and stop the execution", func() {
		gomock.InOrder(
			mockExec.EXPECT().Pause(),
			mockExec.EXPECT().Resume(),
			mockExec.EXPECT().Stop(),
		)
		mockExec.EXPECT().State().Return(execution.StatePaused).AnyTimes()
		mockExec.EXPECT().Iterations().Return(uint64(3)).AnyTimes()

		rec := get(handler, "/api/pause")
		Expect(rec.Body.String()).To(MatchJSON(
			`{"execution": "paused", "director": "idle", "iterations": 3}`))

		Expect(get(handler, "/api/resume").Code).To(Equal(http.StatusOK))
		Expect(get(handler, "/api/stop").Code).To(Equal(http.StatusOK))
	})

	It("should refuse control without an execution", func() {
		m = NewMonitor()
		m.RegisterDirector(director)

		rec := get(m.Handler(), "/api/pause")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should refuse director queries without a director", func() {
		m = NewMonitor()
		m.RegisterExecution(mockExec)
		h := m.Handler()

		for _, url := range []string{
			"/api/now",
			"/api/queue",
			"/api/list_actors",
			"/api/actor/Clock",
		} {
			Expect(get(h, url).Code).To(
				Equal(http.StatusServiceUnavailable), url)
		}

		mockExec.EXPECT().State().Return(execution.StateIdle)
		mockExec.EXPECT().Iterations().Return(uint64(0))

		rec := get(h, "/api/state")
		Expect(rec.Body.String()).To(MatchJSON(
			`{"execution": "idle", "director": "", "iterations": 0}`))
	})

	It("should list the actors", func() {
		Expect(director.Initialize()).To(Succeed())

		rec := get(handler, "/api/list_actors")

		var rsp []actorRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(5))
		Expect(rsp[0]).To(Equal(actorRsp{Name: "Clock", Depth: 0}))
		Expect(rsp[4]).To(Equal(actorRsp{Name: "Recorder", Depth: 4}))
	})

	It("should serialize an actor", func() {
		rec := get(handler, "/api/actor/Clock")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).NotTo(BeEmpty())
	})

	It("should return 404 for unknown actors", func() {
		rec := get(handler, "/api/actor/Nope")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a malformed field request", func() {
		rec := get(handler, "/api/field/notjson")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list the pending events", func() {
		Expect(director.Initialize()).To(Succeed())

		rec := get(handler, "/api/queue?limit=1")

		var rsp []eventRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Actor).To(Equal("Clock"))
		Expect(rsp[0].Pure).To(BeTrue())
		Expect(rsp[0].What).To(Equal("fire Clock at (0s, 0)"))

		Expect(get(handler, "/api/queue?limit=x").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should track the model time progress", func() {
		runToEnd(director)

		rec := get(handler, "/api/progress")

		var rsp []progressBarRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("Model time"))
		Expect(rsp[0].Percent).To(BeNumerically("==", 100))
	})

	It("should export metrics", func() {
		runToEnd(director)

		rec := get(handler, "/metrics")
		body := rec.Body.String()

		Expect(body).To(ContainSubstring(`desim_firings_total{actor="Clock"} 2`))
		Expect(body).To(ContainSubstring(`desim_firings_total{actor="Delay"} 5`))
		Expect(body).To(ContainSubstring("desim_model_time_seconds 1"))
		Expect(body).To(ContainSubstring("desim_actors_disabled_total 1"))
	})

	It("should report the process resources", func() {
		rec := get(handler, "/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the web page", func() {
		rec := get(handler, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should refuse to open a browser before the server starts", func() {
		Expect(m.OpenInBrowser()).NotTo(Succeed())
	})

	Context("with a WebSocket client", func() {
		var (
			server *httptest.Server
			conn   *websocket.Conn
		)

		readUntil := func(match func(eventMsg) bool) eventMsg {
			for {
				var msg eventMsg

				Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).
					To(Succeed())
				Expect(conn.ReadJSON(&msg)).To(Succeed())

				if match(msg) {
					return msg
				}
			}
		}

		BeforeEach(func() {
			mockExec.EXPECT().State().Return(execution.StateIdle).AnyTimes()

			server = httptest.NewServer(handler)
			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"

			var err error
			conn, _, err = websocket.DefaultDialer.Dial(url, nil)
			Expect(err).NotTo(HaveOccurred())

			status := readUntil(func(msg eventMsg) bool {
				return msg.Type == "status"
			})
			Expect(status.State).To(Equal("idle"))
			Eventually(m.numClients).Should(Equal(1))
		})

		AfterEach(func() {
			conn.Close()
			server.Close()
		})

		It("should push the firings", func() {
			runToEnd(director)

			msg := readUntil(func(msg eventMsg) bool {
				return msg.Type == "fired"
			})
			Expect(msg.Actor).To(Equal("Clock"))
			Expect(msg.Time).To(BeNumerically("==", 0))
		})

		It("should accept commands", func() {
			mockExec.EXPECT().Pause()

			Expect(conn.WriteJSON(commandMsg{Type: "pause"})).To(Succeed())

			readUntil(func(msg eventMsg) bool {
				return msg.Type == "status"
			})
		})

		It("should forget closed clients", func() {
			conn.Close()

			Eventually(m.numClients).Should(BeZero())
		})
	})
})

var _ = Describe("ProgressBar", func() {
	It("should compute the percentage", func() {
		bar := newProgressBar("Bar", 200)

		bar.IncrementFinished(50)
		Expect(bar.Percent()).To(BeNumerically("==", 25))

		bar.Set(400)
		Expect(bar.Percent()).To(BeNumerically("==", 100))

		Expect(newProgressBar("Empty", 0).Percent()).
			To(BeNumerically("==", 100))
	})

	It("should add and remove bars", func() {
		m := NewMonitor()
		a := m.CreateProgressBar("A", 1)
		b := m.CreateProgressBar("B", 1)

		Expect(a.ID).NotTo(Equal(b.ID))

		m.CompleteProgressBar(a)

		rec := get(m.Handler(), "/api/progress")
		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"name":"B"`))
		Expect(string(body)).NotTo(ContainSubstring(`"name":"A"`))
	})
})
