package metrics_test

import (
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("NewMetrics", func() {
		It("should start with zero counters", func() {
			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(BeZero())
			Expect(snap.ErrorCount).To(BeZero())
		})
	})

	Describe("RecordCompletion", func() {
		It("should count every completion", func() {
			m.RecordCompletion(http.StatusOK)
			m.RecordCompletion(http.StatusCreated)
			m.RecordCompletion(http.StatusMovedPermanently)

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(3)))
			Expect(snap.ErrorCount).To(BeZero())
		})

		It("should count 4xx and 5xx as errors", func() {
			m.RecordCompletion(http.StatusBadRequest)
			m.RecordCompletion(http.StatusGatewayTimeout)
			m.RecordCompletion(399)

			snap := m.Snapshot()
			Expect(snap.ErrorCount).To(Equal(int64(2)))
			Expect(snap.StatusCodes).To(HaveKeyWithValue(http.StatusGatewayTimeout, int64(1)))
		})

		It("should keep errorCount at or below totalRequests under concurrency", func() {
			var wg sync.WaitGroup
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if i%4 == 0 {
						m.RecordCompletion(http.StatusInternalServerError)
					} else {
						m.RecordCompletion(http.StatusOK)
					}
				}(i)
			}
			wg.Wait()

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(200)))
			Expect(snap.ErrorCount).To(Equal(int64(50)))
		})
	})

	Describe("ErrorRatePercent", func() {
		It("should be zero when nothing was recorded", func() {
			Expect(m.ErrorRatePercent()).To(BeZero())
		})

		It("should round to two decimals", func() {
			m.RecordCompletion(http.StatusOK)
			m.RecordCompletion(http.StatusOK)
			m.RecordCompletion(http.StatusNotFound)

			Expect(m.ErrorRatePercent()).To(Equal(33.33))
		})

		It("should report 100 when every request failed", func() {
			m.RecordCompletion(http.StatusBadGateway)
			Expect(m.ErrorRatePercent()).To(Equal(100.0))
		})

		It("should round half up", func() {
			for i := 0; i < 5; i++ {
				m.RecordCompletion(http.StatusOK)
			}
			for i := 0; i < 1; i++ {
				m.RecordCompletion(http.StatusInternalServerError)
			}
			// 1/6 = 16.666...
			Expect(m.ErrorRatePercent()).To(Equal(16.67))
		})
	})

	Describe("Snapshot", func() {
		It("should copy the status code map", func() {
			m.RecordCompletion(http.StatusOK)
			snap := m.Snapshot()
			snap.StatusCodes[http.StatusOK] = 99

			Expect(m.Snapshot().StatusCodes[http.StatusOK]).To(Equal(int64(1)))
		})
	})
})
