package actors

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Clock", func() {
	var (
		mockCtrl  *gomock.Controller
		scheduler *MockScheduler
		clock     *Clock
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		scheduler = NewMockScheduler(mockCtrl)
		clock = MakeClockBuilder().
			WithPeriod(timing.Seconds(2)).
			WithOffset(timing.Milliseconds(500)).
			WithValues("a", "b").
			Build("Clock")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule the first tick at the offset", func() {
		scheduler.EXPECT().
			FireAt(clock, timing.Milliseconds(500)).
			Return(timing.MakeTag(timing.Milliseconds(500), 0), nil)

		Expect(clock.Initialize(scheduler)).To(Succeed())
	})

	It("should schedule the next tick one period later", func() {
		scheduler.EXPECT().
			FireAt(clock, timing.Milliseconds(500)).
			Return(timing.MakeTag(timing.Milliseconds(500), 0), nil)
		scheduler.EXPECT().
			Now().
			Return(timing.MakeTag(timing.Milliseconds(500), 0))
		scheduler.EXPECT().
			FireAt(clock, timing.Milliseconds(2500)).
			Return(timing.MakeTag(timing.Milliseconds(2500), 0), nil)

		Expect(clock.Initialize(scheduler)).To(Succeed())

		keepGoing, err := clock.Postfire()
		Expect(err).NotTo(HaveOccurred())
		Expect(keepGoing).To(BeTrue())
	})

	It("should cycle through its values and stop at the limit", func() {
		clock = MakeClockBuilder().
			WithValues(1, 2).
			WithLimit(3).
			Build("Clock")
		recorder := NewRecorder("Recorder")

		model := modeling.NewModel("M")
		model.AddActor(clock)
		model.AddActor(recorder)
		model.Connect(clock.Output, recorder.Input)

		d := de.MakeBuilder().Build("DE", model)
		Expect(run(d)).To(Succeed())

		Expect(recorder.Tokens()).To(Equal([]modeling.Token{1, 2, 1}))

		records := recorder.Records()
		Expect(records[2].Tag).To(Equal(timing.MakeTag(timing.Seconds(2), 0)))
		Expect(d.IsDisabled(clock)).To(BeTrue())
	})

	It("should refuse invalid parameters", func() {
		Expect(func() {
			MakeClockBuilder().WithPeriod(0).Build("Clock")
		}).To(Panic())
		Expect(func() {
			MakeClockBuilder().WithValues().Build("Clock")
		}).To(Panic())
		Expect(func() {
			MakeClockBuilder().WithOffset(-1).Build("Clock")
		}).To(Panic())
		Expect(func() {
			MakeClockBuilder().WithLimit(-1).Build("Clock")
		}).To(Panic())
	})
})
