package supervisor

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaifAhmad1/repo-analyzer/pkg/protocol"
)

func newTestSupervisor() *Supervisor {
	return New(zerolog.Nop(),
		WithGracePeriod(50*time.Millisecond),
		WithStopTimeout(2*time.Second),
		WithSettleDelay(10*time.Millisecond),
	)
}

func sleeper(name string) Descriptor {
	return Descriptor{Name: name, Command: "sleep", Args: []string{"60"}}
}

func pidOf(t *testing.T, sup *Supervisor, name string) int {
	t.Helper()
	for _, ws := range sup.Status() {
		if ws.Name == name {
			return ws.Pid
		}
	}
	t.Fatalf("worker %s not in status", name)
	return 0
}

func TestSupervisor_StartAndStop(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	results := sup.Start([]Descriptor{sleeper("file_content")})
	require.NoError(t, results["file_content"])
	assert.Equal(t, 1, sup.RunningCount())

	require.NoError(t, sup.Stop("file_content"))
	assert.Equal(t, 0, sup.RunningCount())

	for _, ws := range sup.Status() {
		assert.Equal(t, StateStopped, ws.State)
	}
}

func TestSupervisor_PartialStartFailure(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	results := sup.Start([]Descriptor{
		sleeper("file_content"),
		sleeper("commit_history"),
		sleeper("code_search"),
		{Name: "broken", Command: "/no/such/worker"},
	})

	assert.NoError(t, results["file_content"])
	assert.NoError(t, results["commit_history"])
	assert.NoError(t, results["code_search"])

	err := results["broken"]
	require.Error(t, err)
	assert.Equal(t, protocol.ErrKindSpawn, protocol.KindOf(err))

	// The bad worker never blocks the good ones.
	assert.Equal(t, 3, sup.RunningCount())

	for _, ws := range sup.Status() {
		if ws.Name == "broken" {
			assert.Equal(t, StateStopped, ws.State)
			assert.NotEmpty(t, ws.LastError)
		}
	}
}

func TestSupervisor_CrashDuringStartup(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	results := sup.Start([]Descriptor{{Name: "flash", Command: "true"}})
	err := results["flash"]
	require.Error(t, err)
	assert.Equal(t, protocol.ErrKindSpawn, protocol.KindOf(err))
	assert.Contains(t, err.Error(), "exited during startup")
}

func TestSupervisor_StartIsIdempotent(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	require.NoError(t, sup.Start([]Descriptor{sleeper("file_content")})["file_content"])
	first := pidOf(t, sup, "file_content")

	// A second start of a running worker must not spawn a second process.
	require.NoError(t, sup.Start([]Descriptor{sleeper("file_content")})["file_content"])
	assert.Equal(t, first, pidOf(t, sup, "file_content"))
	assert.Equal(t, 1, sup.RunningCount())
}

func TestSupervisor_RestartReplacesProcess(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	require.NoError(t, sup.Start([]Descriptor{sleeper("file_content")})["file_content"])
	first := pidOf(t, sup, "file_content")

	results := sup.Restart("file_content")
	require.NoError(t, results["file_content"])

	second := pidOf(t, sup, "file_content")
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, sup.RunningCount())
}

func TestSupervisor_HealthDemotesDeadWorker(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	require.NoError(t, sup.Start([]Descriptor{sleeper("file_content")})["file_content"])
	require.Equal(t, map[string]State{"file_content": StateRunning}, sup.Health())

	// Kill the process behind the supervisor's back.
	require.NoError(t, syscall.Kill(pidOf(t, sup, "file_content"), syscall.SIGKILL))

	require.Eventually(t, func() bool {
		return sup.Health()["file_content"] == StateUnhealthy
	}, 2*time.Second, 20*time.Millisecond)

	_, err := sup.Session("file_content")
	assert.Error(t, err)
}

func TestSupervisor_ReplaceSession(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	require.NoError(t, sup.Start([]Descriptor{sleeper("file_content")})["file_content"])
	first := pidOf(t, sup, "file_content")

	require.NoError(t, sup.ReplaceSession("file_content"))
	assert.NotEqual(t, first, pidOf(t, sup, "file_content"))

	session, err := sup.Session("file_content")
	require.NoError(t, err)
	assert.True(t, session.Alive())

	assert.Error(t, sup.ReplaceSession("ghost"))
}

// processGone reports whether the OS process has exited and been reaped.
func processGone(pid int) bool {
	return syscall.Kill(pid, 0) == syscall.ESRCH
}

func TestSupervisor_ConcurrentStartSpawnsOnce(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results := sup.Start([]Descriptor{sleeper("file_content")})
			assert.NoError(t, results["file_content"])
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sup.RunningCount())

	pid := pidOf(t, sup, "file_content")
	require.NoError(t, sup.Stop("file_content"))
	require.Eventually(t, func() bool { return processGone(pid) },
		3*time.Second, 20*time.Millisecond)
}

func TestSupervisor_ConcurrentReplaceSessionKeepsOneProcess(t *testing.T) {
	sup := newTestSupervisor()
	defer sup.Stop()

	require.NoError(t, sup.Start([]Descriptor{sleeper("file_content")})["file_content"])

	var mu sync.Mutex
	seen := map[int]bool{pidOf(t, sup, "file_content"): true}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sup.ReplaceSession("file_content"))
			mu.Lock()
			seen[pidOf(t, sup, "file_content")] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sup.RunningCount())
	final := pidOf(t, sup, "file_content")
	assert.True(t, seen[final])

	// Every process this worker ever had, except the current one, must be
	// gone; a survivor would be an orphan the supervisor can never reach.
	require.Eventually(t, func() bool {
		for pid := range seen {
			if pid != final && !processGone(pid) {
				return false
			}
		}
		return true
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSupervisor_UnknownWorkerLookups(t *testing.T) {
	sup := newTestSupervisor()

	_, err := sup.Session("ghost")
	require.Error(t, err)
	assert.Equal(t, protocol.ErrKindNotFound, protocol.KindOf(err))

	_, err = sup.Descriptor("ghost")
	require.Error(t, err)
	assert.Equal(t, protocol.ErrKindNotFound, protocol.KindOf(err))

	err = sup.Stop("ghost")
	require.Error(t, err)
}

func TestSupervisor_StopAllByDefault(t *testing.T) {
	sup := newTestSupervisor()

	sup.Start([]Descriptor{sleeper("file_content"), sleeper("code_search")})
	require.Equal(t, 2, sup.RunningCount())

	require.NoError(t, sup.Stop())
	assert.Equal(t, 0, sup.RunningCount())
}
