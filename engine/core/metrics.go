package core

import (
	"sync"
	"sync/atomic"
)

const AVG_COUNT uint8 = 30

// Metrics tracks frame timing for the host loop and attachment outcomes for the
// scene pipeline. Attachment counters are safe for concurrent use.
type Metrics struct {
	mu                 sync.Mutex
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64

	attachmentsDispatched atomic.Int64
	attachmentsApplied    atomic.Int64
	attachmentsFailed     atomic.Int64
	attachmentsSkipped    atomic.Int64
	nodesCreated          atomic.Int64
}

// AttachmentStats is a point-in-time copy of the attachment counters.
type AttachmentStats struct {
	Nodes      int64
	Dispatched int64
	Applied    int64
	Failed     int64
	Skipped    int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(frameElapsedTime float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Calculate frame ms average
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.msAvg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Calculate Frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	// Count all Frames.
	m.frames++
}

func (m *Metrics) Frame() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps, m.msAvg
}

func (m *Metrics) NodeCreated()         { m.nodesCreated.Add(1) }
func (m *Metrics) AttachmentDispatched() { m.attachmentsDispatched.Add(1) }
func (m *Metrics) AttachmentApplied()    { m.attachmentsApplied.Add(1) }
func (m *Metrics) AttachmentFailed()     { m.attachmentsFailed.Add(1) }
func (m *Metrics) AttachmentSkipped()    { m.attachmentsSkipped.Add(1) }

func (m *Metrics) Attachments() AttachmentStats {
	return AttachmentStats{
		Nodes:      m.nodesCreated.Load(),
		Dispatched: m.attachmentsDispatched.Load(),
		Applied:    m.attachmentsApplied.Load(),
		Failed:     m.attachmentsFailed.Load(),
		Skipped:    m.attachmentsSkipped.Load(),
	}
}
