// events_test.go - Tests for publishers and the dispatcher

package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-user-backend/config"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "accounts/user/registered", mqttTopic("accounts", UserRegistered))
	assert.Equal(t, "accounts/user/status_changed", mqttTopic("accounts/", UserStatusChanged))
	assert.Equal(t, "accounts.user.login", kafkaTopic("accounts", UserLoggedIn))
}

func TestNewSelectsBackend(t *testing.T) {
	p, err := New(&config.Config{EventsBackend: "none"})
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)

	p, err = New(&config.Config{EventsBackend: "log"})
	require.NoError(t, err)
	assert.IsType(t, LogPublisher{}, p)

	_, err = New(&config.Config{EventsBackend: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	rec := &recordingPublisher{}
	d := NewDispatcher(rec, 16)

	d.Emit(Event{Type: UserRegistered, UserID: 1, Email: "a@example.com"})
	d.Emit(Event{Type: UserLoggedIn, UserID: 1})
	require.NoError(t, d.Close())

	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, UserRegistered, got[0].Type)
	assert.False(t, got[0].At.IsZero())
	assert.True(t, rec.closed)

	d.Emit(Event{Type: UserUpdated, UserID: 1})
	assert.Len(t, rec.snapshot(), 2)
}

func TestDispatcherSurvivesPublishErrors(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(rec, 4)

	d.Emit(Event{Type: UserCreated, UserID: 2})
	require.NoError(t, d.Close())

	assert.Len(t, rec.snapshot(), 1)
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Emit(Event{Type: UserCreated})
	assert.Zero(t, d.Dropped())
	assert.NoError(t, d.Close())
}

func TestKafkaPublisherSendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e Event
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.Type != UserStatusChanged || e.UserID != 7 || e.Data["isActive"] != false {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := newKafkaPublisher(producer, "accounts")
	err := p.Publish(context.Background(), Event{
		Type:   UserStatusChanged,
		UserID: 7,
		At:     time.Now(),
		Data:   map[string]any{"isActive": false},
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestKafkaPublisherReportsFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newKafkaPublisher(producer, "accounts")
	err := p.Publish(context.Background(), Event{Type: UserCreated, UserID: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

// fakeToken is an already-completed MQTT token.
type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTTClient struct {
	mqtt.Client
	topic        string
	qos          byte
	payload      []byte
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.payload = payload.([]byte)
	return newFakeToken(nil)
}

func (c *fakeMQTTClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisherPublishesQoS1(t *testing.T) {
	client := &fakeMQTTClient{}
	p := newMQTTPublisher(client, "accounts")

	err := p.Publish(context.Background(), Event{Type: UserPasswordChanged, UserID: 3})
	require.NoError(t, err)

	assert.Equal(t, "accounts/user/password_changed", client.topic)
	assert.Equal(t, byte(1), client.qos)

	var e Event
	require.NoError(t, json.Unmarshal(client.payload, &e))
	assert.Equal(t, uint(3), e.UserID)

	require.NoError(t, p.Close())
	assert.True(t, client.disconnected)
}
