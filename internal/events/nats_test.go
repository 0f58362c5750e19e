package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNATSEmitter_Emit(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("orchestration.study-1.*")
	require.NoError(t, err)

	emitter := NewNATSEmitterConn(nc)
	require.NoError(t, emitter.Emit(context.Background(), sampleEvent()))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "orchestration.study-1.action_executed", msg.Subject)

	var received Event
	require.NoError(t, json.Unmarshal(msg.Data, &received))
	assert.Equal(t, TypeActionExecuted, received.Type)
	assert.Equal(t, "study-1", received.StudyID)
	assert.Equal(t, "create_pr", received.Data["action"])
}

func TestNATSEmitter_SubjectSanitization(t *testing.T) {
	emitter := &NATSEmitter{}

	cases := []struct {
		study string
		want  string
	}{
		{"study-1", "orchestration.study-1.completed"},
		{"", "orchestration.unknown.completed"},
		{"a.b c*d>e", "orchestration.a_b_c_d_e.completed"},
	}
	for _, tc := range cases {
		got := emitter.subject(Event{Type: TypeCompleted, StudyID: tc.study})
		assert.Equal(t, tc.want, got)
	}
}

func TestNATSEmitter_Close(t *testing.T) {
	server := startTestNATSServer(t)

	emitter, err := NewNATSEmitter(server.ClientURL())
	require.NoError(t, err)

	emitter.Close()
	// Close again is safe.
	emitter.Close()
}

func TestNewNATSEmitter_BadURL(t *testing.T) {
	_, err := NewNATSEmitter("nats://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}
