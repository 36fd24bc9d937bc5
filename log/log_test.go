package log

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleTotal    = uint32(15)
	sampleAddress  = []byte{0xde, 0xad, 0xbe, 0xef}
	sampleList     = []uint32{10, 5, 0}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("execution reverted")
)

func doLogs() {
	Infof("counter total is %d after add from %x", sampleTotal, sampleAddress)
	Debugw("counter deployed", "address", "0xabc123", "owner", "0xdef456")
	Errorf("cannot commit counter state: %v", errSample)
	Warnw("various types",
		"contributions", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestInvalidUTF8(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { panicOnInvalidChars = false })
	Init(LogLevelDebug, "stderr", nil)

	bad := string([]byte{'o', 'w', 'n', 'e', 'r', 0xff})
	panicOnInvalidChars = false
	c.Assert(func() { Debugw(bad) }, qt.Not(qt.PanicMatches), ".*")
	panicOnInvalidChars = true
	c.Assert(func() { Debugf("%s", bad) }, qt.PanicMatches, ".*")
	c.Assert(func() { Debugw("owner ok") }, qt.Not(qt.PanicMatches), ".*")
}

func TestErrorOutput(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { logTestWriter = io.Discard })

	var all, errs bytes.Buffer
	logTestWriter = &all
	Init(LogLevelDebug, logTestWriterName, &errs)
	c.Assert(Level(), qt.Equals, LogLevelDebug)

	Infow("counter incremented", "total", sampleTotal)
	c.Assert(all.String(), qt.Contains, "counter incremented")
	c.Assert(errs.Len(), qt.Equals, 0)

	Errorw(errSample, "reset failed", "caller", "0xabc")
	c.Assert(errs.String(), qt.Contains, "reset failed")
	c.Assert(errs.String(), qt.Contains, "execution reverted")
}

func TestLevelFilter(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { logTestWriter = io.Discard })

	var all bytes.Buffer
	logTestWriter = &all
	Init(LogLevelWarn, logTestWriterName, nil)
	Debugw("hidden")
	Infow("hidden too")
	c.Assert(all.Len(), qt.Equals, 0)
	Warnw("visible")
	c.Assert(all.String(), qt.Contains, "visible")
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
