package cmd

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-mo/bandix/internal/pipeline"
	"github.com/ti-mo/bandix/internal/store/traffic"
)

func TestPrintResponse(t *testing.T) {

	var b bytes.Buffer
	require.NoError(t, printResponse(&b, http.StatusOK, []byte(`{"status":"success","message":"Flush completed"}`)))
	assert.Contains(t, b.String(), "Flush completed")

	err := printResponse(&b, http.StatusInternalServerError, []byte(`{"status":"error","message":"disk full"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Error(t, printResponse(&b, http.StatusOK, []byte("not json")))
}

func TestFinalFlush(t *testing.T) {

	dir := t.TempDir()
	ts := traffic.New(traffic.Config{Dir: dir})
	require.True(t, ts.Record("aa:bb:cc:dd:ee:ff", traffic.Rx, 100, 1))

	p, err := pipeline.New(pipeline.Config{DataDir: dir}, ts)
	require.NoError(t, err)

	// Signals arriving during the final flush are ignored.
	sig := make(chan os.Signal, 2)
	sig <- syscall.SIGTERM
	sig <- syscall.SIGINT

	require.NoError(t, finalFlush(p, 5*time.Second, sig))
	assert.False(t, p.Gate().Enabled())
	assert.FileExists(t, ts.Path())

	// Later calls observe the same result.
	require.NoError(t, finalFlush(p, 5*time.Second, sig))
}

func TestLoadStore(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	lvl := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(lvl)

	loadStore("traffic", func() error { return errors.New("corrupt snapshot") })

	e := hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal(t, log.ErrorLevel, e.Level)
	assert.Equal(t, "traffic", e.Data["store"])
	assert.Contains(t, e.Message, "starting empty")
	assert.Contains(t, e.Message, "corrupt snapshot")

	hook.Reset()
	loadStore("dns", func() error { return nil })

	e = hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal(t, log.DebugLevel, e.Level)
	assert.Equal(t, "dns", e.Data["store"])
	assert.Len(t, hook.AllEntries(), 1)
}
