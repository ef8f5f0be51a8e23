package sim

import "github.com/san-kum/vortexsim/internal/dynamo"

// Frame is one recorded configuration.
type Frame struct {
	Step int
	Time float64
	Pos  dynamo.Positions
}

// Recorder is an Observer that keeps every Every-th configuration, at most
// Keep of them (the most recent). Keep <= 0 keeps everything.
type Recorder struct {
	Every  int
	Keep   int
	frames []Frame
}

func NewRecorder(every, keep int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{Every: every, Keep: keep}
}

func (r *Recorder) OnStep(step int, t float64, pos dynamo.Positions) {
	if step%r.Every != 0 {
		return
	}
	r.frames = append(r.frames, Frame{Step: step, Time: t, Pos: pos})
	if r.Keep > 0 && len(r.frames) > r.Keep {
		r.frames = append(r.frames[:0], r.frames[len(r.frames)-r.Keep:]...)
	}
}

func (r *Recorder) Frames() []Frame { return r.frames }

// Trails returns the recorded path of each vortex, oldest first.
func (r *Recorder) Trails() []dynamo.Positions {
	if len(r.frames) == 0 {
		return nil
	}
	n := len(r.frames[0].Pos)
	trails := make([]dynamo.Positions, n)
	for i := range trails {
		trails[i] = make(dynamo.Positions, 0, len(r.frames))
	}
	for _, f := range r.frames {
		for i := 0; i < n && i < len(f.Pos); i++ {
			trails[i] = append(trails[i], f.Pos[i])
		}
	}
	return trails
}

func (r *Recorder) Reset() { r.frames = r.frames[:0] }
