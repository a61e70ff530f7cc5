package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/internal/runtime"
	"github.com/aretw0/roboflow/pkg/adapters/memory"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/dsl"
)

type doneToken struct {
	err     error
	pending bool
}

func (t doneToken) Wait() bool                     { return !t.pending }
func (t doneToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

type message struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes; every other paho.Client method is unimplemented.
type fakeClient struct {
	paho.Client
	mu    sync.Mutex
	msgs  []message
	token doneToken
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload any) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, message{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func TestPublisher_Hooks(t *testing.T) {
	client := &fakeClient{}
	pub := NewPublisher(client, WithTopicPrefix("lab"), WithQoS(0))

	b := dsl.New("s")
	b.Add(0, "start").Go(1)
	b.Add(1, "end").Type("x")
	sc, err := b.Build()
	require.NoError(t, err)

	report, err := runtime.New(memory.NewDevice("<hierarchy/>"), runtime.WithLifecycleHooks(pub.Hooks())).
		Run(context.Background(), sc)
	require.NoError(t, err)

	var topics []string
	for _, m := range client.msgs {
		topics = append(topics, m.topic)
		assert.Equal(t, byte(0), m.qos)
	}
	prefix := "lab/runs/" + report.RunID + "/"
	assert.Equal(t, []string{
		prefix + "state_enter",
		prefix + "guard",
		prefix + "state_leave",
		prefix + "state_enter",
		prefix + "action_call",
		prefix + "action_return",
		prefix + "state_leave",
		prefix + "run_finish",
	}, topics)

	var finish domain.RunEvent
	require.NoError(t, json.Unmarshal(client.msgs[len(client.msgs)-1].payload, &finish))
	assert.Equal(t, domain.OutcomeSuccess, finish.Report.Outcome)
	assert.Equal(t, []int{0, 1}, finish.Report.Trace)
}

func TestPublisher_Errors(t *testing.T) {
	client := &fakeClient{token: doneToken{pending: true}}
	pub := NewPublisher(client, WithTimeout(time.Millisecond))
	assert.ErrorIs(t, pub.Publish("r", domain.EventGuard, struct{}{}), ErrPublishTimeout)

	refused := errors.New("not authorized")
	client.token = doneToken{err: refused}
	assert.ErrorIs(t, pub.Publish("r", domain.EventGuard, struct{}{}), refused)

	assert.Error(t, pub.Publish("r", domain.EventGuard, make(chan int)))
}

func TestPublisher_Topic(t *testing.T) {
	pub := NewPublisher(&fakeClient{})
	assert.Equal(t, "roboflow/runs/abc/run_finish", pub.Topic("abc", domain.EventRunFinish))
}
