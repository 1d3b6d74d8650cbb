package execution

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Manager", func() {
	var (
		mockCtrl *gomock.Controller
		director *MockDirector
		listener *MockListener
		m        *Manager

		statesLock sync.Mutex
		states     []State
	)

	recordedStates := func() []State {
		statesLock.Lock()
		defer statesLock.Unlock()

		return append([]State(nil), states...)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		director = NewMockDirector(mockCtrl)
		listener = NewMockListener(mockCtrl)
		m = NewManager("Manager", director)
		m.AddListener(listener)

		states = nil
		listener.EXPECT().ManagerStateChanged(m).
			Do(func(m *Manager) {
				statesLock.Lock()
				defer statesLock.Unlock()

				states = append(states, m.State())
			}).
			AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run until the director has no more events", func() {
		gomock.InOrder(
			director.EXPECT().Initialize().Return(nil),
			director.EXPECT().Fire().Return(de.ResultContinue, nil).Times(2),
			director.EXPECT().Fire().Return(de.ResultNoMoreEvents, nil),
			director.EXPECT().Wrapup().Return(nil),
			listener.EXPECT().ExecutionFinished(m),
		)

		m.Run()

		Expect(m.Iterations()).To(Equal(uint64(2)))
		Expect(m.LastResult()).To(Equal(de.ResultNoMoreEvents))
		Expect(m.State()).To(Equal(StateIdle))
		Expect(recordedStates()).To(Equal([]State{
			StateInitializing, StateIterating, StateWrapping, StateIdle,
		}))
	})

	It("should finish with zero iterations when nothing is scheduled", func() {
		director.EXPECT().Initialize().Return(nil)
		director.EXPECT().Fire().Return(de.ResultNoMoreEvents, nil)
		director.EXPECT().Wrapup().Return(nil)
		listener.EXPECT().ExecutionFinished(m)

		m.Run()

		Expect(m.Iterations()).To(BeZero())
	})

	It("should report iteration failures and still wrap up", func() {
		failure := errors.New("failure")
		director.EXPECT().Initialize().Return(nil)
		director.EXPECT().Fire().Return(de.ResultContinue, failure)
		director.EXPECT().Wrapup().Return(nil)
		listener.EXPECT().ExecutionError(m, gomock.Any()).
			Do(func(_ *Manager, err error) {
				Expect(err).To(MatchError(failure))
			})

		m.Run()
	})

	It("should not iterate if initialization fails", func() {
		failure := errors.New("failure")
		director.EXPECT().Initialize().Return(failure)
		director.EXPECT().Wrapup().Return(nil)
		listener.EXPECT().ExecutionError(m, gomock.Any())

		m.Run()

		Expect(recordedStates()).To(Equal([]State{
			StateInitializing, StateWrapping, StateIdle,
		}))
	})

	It("should join iteration and wrap-up failures", func() {
		fireErr := errors.New("fire")
		wrapupErr := errors.New("wrapup")
		director.EXPECT().Initialize().Return(nil)
		director.EXPECT().Fire().Return(de.ResultContinue, fireErr)
		director.EXPECT().Wrapup().Return(wrapupErr)

		err := m.Execute()

		Expect(errors.Is(err, fireErr)).To(BeTrue())
		Expect(errors.Is(err, wrapupErr)).To(BeTrue())
	})

	It("should turn panics into actor errors", func() {
		director.EXPECT().Initialize().Return(nil)
		director.EXPECT().Fire().DoAndReturn(func() (de.Result, error) {
			panic("index out of range")
		})
		director.EXPECT().FiringActorName().Return("Broken")
		director.EXPECT().Now().Return(timing.MakeTag(timing.Seconds(4), 2))
		director.EXPECT().Wrapup().Return(nil)
		listener.EXPECT().ExecutionError(m, gomock.Any()).
			Do(func(_ *Manager, err error) {
				var actorErr *de.ActorError
				Expect(errors.As(err, &actorErr)).To(BeTrue())
				Expect(actorErr.Actor).To(Equal("Broken"))
				Expect(actorErr.Tag).To(Equal(timing.MakeTag(timing.Seconds(4), 2)))
				Expect(actorErr.Err).To(MatchError("panic: index out of range"))
			})

		m.Run()
	})

	It("should let panics escape from Execute", func() {
		director.EXPECT().Initialize().DoAndReturn(func() error {
			panic("bad")
		})

		Expect(func() { _ = m.Execute() }).To(Panic())
		Expect(m.State()).To(Equal(StateIdle))
		Expect(m.Wait()).To(Succeed())
	})

	It("should run in the background", func() {
		director.EXPECT().Initialize().Return(nil)
		director.EXPECT().Fire().Return(de.ResultStopTimeReached, nil)
		director.EXPECT().Wrapup().Return(nil)
		listener.EXPECT().ExecutionFinished(m)

		Expect(m.StartRun()).To(Succeed())
		Expect(m.Wait()).To(Succeed())
		Expect(m.LastResult()).To(Equal(de.ResultStopTimeReached))
	})

	It("should return the error of a background run from Wait", func() {
		failure := errors.New("failure")
		director.EXPECT().Initialize().Return(failure)
		director.EXPECT().Wrapup().Return(nil)
		listener.EXPECT().ExecutionError(m, gomock.Any())

		Expect(m.StartRun()).To(Succeed())
		Expect(m.Wait()).To(MatchError(failure))
	})

	It("should stop notifying removed listeners", func() {
		m.RemoveListener(listener)
		director.EXPECT().Initialize().Return(nil)
		director.EXPECT().Fire().Return(de.ResultNoMoreEvents, nil)
		director.EXPECT().Wrapup().Return(nil)

		m.Run()

		Expect(recordedStates()).To(BeEmpty())
	})

	Context("when controlled from another goroutine", func() {
		var (
			gate  chan struct{}
			fires atomic.Int32
		)

		fireCount := func() int32 {
			return fires.Load()
		}

		BeforeEach(func() {
			gate = make(chan struct{})
			fires.Store(0)

			director.EXPECT().Initialize().Return(nil)
			director.EXPECT().Fire().
				DoAndReturn(func() (de.Result, error) {
					fires.Add(1)
					<-gate

					return de.ResultContinue, nil
				}).
				AnyTimes()
			director.EXPECT().Wrapup().Return(nil)
			director.EXPECT().Stop().AnyTimes()
			listener.EXPECT().ExecutionFinished(m)
		})

		It("should refuse to start twice", func() {
			Expect(m.StartRun()).To(Succeed())
			Eventually(fireCount).Should(Equal(int32(1)))

			Expect(m.StartRun()).To(MatchError(ErrAlreadyRunning))
			Expect(m.Execute()).To(MatchError(ErrAlreadyRunning))

			m.Stop()
			close(gate)
			Expect(m.Wait()).To(Succeed())
		})

		It("should pause between iterations", func() {
			Expect(m.StartRun()).To(Succeed())
			Eventually(fireCount).Should(Equal(int32(1)))

			m.Pause()
			gate <- struct{}{}

			Eventually(m.State).Should(Equal(StatePaused))
			Consistently(fireCount, 50*time.Millisecond).Should(Equal(int32(1)))

			m.Resume()
			Eventually(fireCount).Should(Equal(int32(2)))
			Expect(m.State()).To(Equal(StateIterating))

			m.Stop()
			close(gate)

			Expect(m.Wait()).To(Succeed())
			Expect(m.LastResult()).To(Equal(de.ResultStopRequested))
			Expect(m.Iterations()).To(Equal(uint64(2)))
			Expect(recordedStates()).To(ContainElement(StatePaused))
		})

		It("should stop a paused run", func() {
			Expect(m.StartRun()).To(Succeed())
			Eventually(fireCount).Should(Equal(int32(1)))

			m.Pause()
			gate <- struct{}{}
			Eventually(m.State).Should(Equal(StatePaused))

			m.Stop()

			Expect(m.Wait()).To(Succeed())
			Expect(fireCount()).To(Equal(int32(1)))
			close(gate)
		})
	})
})

type pastScheduler struct {
	*modeling.ActorBase
}

func (a *pastScheduler) Initialize(s modeling.Scheduler) error {
	if err := a.ActorBase.Initialize(s); err != nil {
		return err
	}

	_, err := s.FireAt(a, timing.Seconds(2))

	return err
}

func (a *pastScheduler) Fire() error {
	_, err := a.Scheduler().FireAt(a, timing.Seconds(1))
	return err
}

var _ = Describe("Manager with a DE director", func() {
	var (
		mockCtrl *gomock.Controller
		listener *MockListener
		model    *modeling.Model
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		listener = NewMockListener(mockCtrl)
		listener.EXPECT().ManagerStateChanged(gomock.Any()).AnyTimes()
		model = modeling.NewModel("M")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report causality violations", func() {
		model.AddActor(&pastScheduler{ActorBase: modeling.NewActorBase("Past")})
		m := NewManager("Manager", de.MakeBuilder().Build("DE", model))
		m.AddListener(listener)

		listener.EXPECT().ExecutionError(m, gomock.Any()).
			Do(func(_ *Manager, err error) {
				Expect(err).To(MatchError(de.ErrCausalityViolation))
			})

		m.Run()
	})

	It("should finish an empty model without iterating", func() {
		m := NewManager("Manager", de.MakeBuilder().Build("DE", model))
		m.AddListener(listener)

		listener.EXPECT().ExecutionFinished(m)

		m.Run()

		Expect(m.Iterations()).To(BeZero())
	})
})
