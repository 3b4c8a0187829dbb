package audio

// sampleRing keeps the most recent mono samples. Callers hold their own lock.
type sampleRing struct {
	buf []float32
	pos int
}

func newSampleRing(size int) sampleRing {
	if size <= 0 {
		size = defaultBufferSize
	}
	return sampleRing{buf: make([]float32, size)}
}

func (r *sampleRing) push(v float32) {
	r.buf[r.pos] = v
	r.pos++
	if r.pos == len(r.buf) {
		r.pos = 0
	}
}

// write appends in, keeping only the tail when in is longer than the ring.
func (r *sampleRing) write(in []float32) {
	if len(in) == 0 {
		return
	}
	if len(in) >= len(r.buf) {
		copy(r.buf, in[len(in)-len(r.buf):])
		r.pos = 0
		return
	}
	n := copy(r.buf[r.pos:], in)
	if n < len(in) {
		r.pos = copy(r.buf, in[n:])
		return
	}
	r.pos += n
	if r.pos == len(r.buf) {
		r.pos = 0
	}
}

// writeInterleaved downmixes interleaved frames to mono before writing.
func (r *sampleRing) writeInterleaved(in []float32, channels int) {
	if channels <= 1 {
		r.write(in)
		return
	}
	frames := len(in) / channels
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += in[base+ch]
		}
		r.push(sum / float32(channels))
	}
}

// snapshot copies the ring into dst oldest first, reusing dst when it is
// large enough.
func (r *sampleRing) snapshot(dst []float32) []float32 {
	if cap(dst) < len(r.buf) {
		dst = make([]float32, len(r.buf))
	}
	dst = dst[:len(r.buf)]
	n := copy(dst, r.buf[r.pos:])
	copy(dst[n:], r.buf[:r.pos])
	return dst
}
