package mqtt

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/plugsync/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "plugsync-test",
		},
		QoS: 1,
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func offlineClient() *Client {
	cfg := testConfig()
	return newClient(cfg, buildClientOptions(cfg))
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "user", Password: "pass"}

	opts := buildClientOptions(cfg)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://127.0.0.1:1883", opts.Servers[0].String())
	assert.Equal(t, "plugsync-test", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.False(t, opts.AutoReconnect)
	assert.False(t, opts.ConnectRetry)
	assert.Nil(t, opts.TLSConfig)
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	assert.Equal(t, "ssl://127.0.0.1:8883", opts.Servers[0].String())
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(tlsMinVersion), opts.TLSConfig.MinVersion)
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "plugsync-test")

	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "plugsync/plugsync-test/status", opts.WillTopic)
	assert.Equal(t, []byte(statusOffline), opts.WillPayload)
	assert.True(t, opts.WillRetained)
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	assert.Equal(t, "/plugsync/device/kitchen/emeter", topics.Emeter("/plugsync/device/kitchen"))
	assert.Equal(t, "/plugsync/device/kitchen/emeter", topics.Emeter("/plugsync/device/kitchen/"))
	assert.Equal(t, "/plugsync/device/kitchen/emeter/power", topics.EmeterField("/plugsync/device/kitchen", "power"))
	assert.Equal(t, "plugsync/abc/status", topics.Status("abc"))
}

func TestPublish_Validation(t *testing.T) {
	c := offlineClient()

	assert.ErrorIs(t, c.Publish("", []byte("on"), 0, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.Publish("/t", []byte("on"), 3, false), ErrInvalidQoS)
	assert.ErrorIs(t, c.Publish("/t", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed)
	assert.ErrorIs(t, c.Publish("/t", []byte("on"), 0, false), ErrNotConnected)
}

func TestSubscribe_Validation(t *testing.T) {
	c := offlineClient()
	noop := func(string, []byte) error { return nil }

	assert.ErrorIs(t, c.Subscribe("", 0, noop), ErrInvalidTopic)
	assert.ErrorIs(t, c.Subscribe("/t", 3, noop), ErrInvalidQoS)
	assert.ErrorIs(t, c.Subscribe("/t", 0, nil), ErrSubscribeFailed)
	assert.ErrorIs(t, c.Subscribe("/t", 0, noop), ErrNotConnected)
}

func TestHealthCheck_Offline(t *testing.T) {
	c := offlineClient()

	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.HealthCheck(ctx), context.Canceled)
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	assert.NoError(t, c.Close())
}

func TestLost_FiresOnce(t *testing.T) {
	c := offlineClient()

	c.handleDisconnect(errors.New("EOF"))
	c.handleDisconnect(errors.New("second"))

	err, ok := <-c.Lost()
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Contains(t, err.Error(), "EOF")

	_, ok = <-c.Lost()
	assert.False(t, ok, "channel should be closed after the first loss")
	assert.False(t, c.IsConnected())
}

func TestWrapHandler_DeliversMessage(t *testing.T) {
	c := offlineClient()

	var gotTopic, gotPayload string
	h := c.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return nil
	})
	h(nil, &fakeMessage{topic: "/pong", payload: []byte("alive")})

	assert.Equal(t, "/pong", gotTopic)
	assert.Equal(t, "alive", gotPayload)
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	c := offlineClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	h := c.wrapHandler(func(string, []byte) error { panic("boom") })
	require.NotPanics(t, func() { h(nil, &fakeMessage{topic: "/t"}) })

	assert.Equal(t, []string{"MQTT handler panic recovered"}, logger.errors)
}

func TestWrapHandler_LogsError(t *testing.T) {
	c := offlineClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	h := c.wrapHandler(func(string, []byte) error { return errors.New("nope") })
	h(nil, &fakeMessage{topic: "/t"})

	assert.Equal(t, []string{"MQTT handler returned error"}, logger.warns)
}

// TestBrokerRoundtrip needs a broker; set PLUGSYNC_TEST_BROKER=1 to run it.
func TestBrokerRoundtrip(t *testing.T) {
	if os.Getenv("PLUGSYNC_TEST_BROKER") == "" {
		t.Skip("PLUGSYNC_TEST_BROKER not set")
	}

	client, err := Connect(testConfig())
	require.NoError(t, err)
	defer client.Close()

	received := make(chan string, 1)
	topic := "/plugsync/test/roundtrip"
	require.NoError(t, client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	}))
	require.NoError(t, client.Publish(topic, []byte("on"), 1, false))

	select {
	case got := <-received:
		assert.Equal(t, "on", got)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}
