package progress

import (
	"bytes"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlag(t *testing.T) {
	f := NewFlag()
	assert.False(t, f.IsCancelled())

	f.Cancel()
	assert.True(t, f.IsCancelled())

	f.Reset()
	assert.False(t, f.IsCancelled())
}

func TestNilFlag(t *testing.T) {
	var f *Flag
	assert.NotPanics(t, func() {
		f.Cancel()
		f.Reset()
	})
	assert.False(t, f.IsCancelled())
}

func TestFlagConcurrentCancel(t *testing.T) {
	f := NewFlag()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Cancel()
			_ = f.IsCancelled()
		}()
	}
	wg.Wait()
	assert.True(t, f.IsCancelled())
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	r := Multi(a, nil, b)

	r.ReportStatus("hello")
	r.ReportProgress(1, 2)

	for _, rec := range []*Recorder{a, b} {
		assert.Equal(t, []string{"hello"}, rec.Statuses)
		assert.Equal(t, [][2]int{{1, 2}}, rec.Steps)
	}
}

func TestFuncsNilFields(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop.ReportStatus("x")
		Nop.ReportProgress(1, 1)
	})
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	r := Multi(&Recorder{}, LogReporter{Prefix: "[Status]"})
	r.ReportStatus("Downloading page 3 of 10")
	r.ReportProgress(3, 10)

	assert.Contains(t, buf.String(), "[Status] Downloading page 3 of 10")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
