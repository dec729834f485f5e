package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpiolink/protocol"
)

func TestSimDeviceRoundTrip(t *testing.T) {
	dev, err := NewSimDevice(protocol.LegacyProfile(), 0)
	require.NoError(t, err)

	port, err := dev.Opener()(Config{Device: "sim0", Baud: 9600})
	require.NoError(t, err)
	defer port.Close()

	// raise GP2 and GP5, then read
	_, err = port.Write([]byte("250"))
	require.NoError(t, err)

	n, err := port.BytesAvailable()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := port.ReadAvailable()
	require.NoError(t, err)
	assert.Equal(t, "1001", string(data))

	level, err := dev.GPIO.GetPin(5)
	require.NoError(t, err)
	assert.True(t, level)
}

func TestSimPortChunking(t *testing.T) {
	dev, err := NewSimDevice(protocol.ReferenceProfile(), 2)
	require.NoError(t, err)

	port, err := dev.Opener()(Config{Device: "sim0", Baud: 115200})
	require.NoError(t, err)

	_, err = port.Write([]byte("?\r\n"))
	require.NoError(t, err)

	var chunks []string
	for {
		data, err := port.ReadAvailable()
		require.NoError(t, err)
		if len(data) == 0 {
			break
		}
		assert.LessOrEqual(t, len(data), 2)
		chunks = append(chunks, string(data))
	}
	assert.Equal(t, []string{"00", "00", "00"}, chunks)
}

func TestSimPortCloseIsIdempotent(t *testing.T) {
	port := NewSimPort("sim0", nil, 0)
	port.Inject([]byte("1"))

	require.NoError(t, port.Close())
	require.NoError(t, port.Close())

	_, err := port.Write([]byte("0"))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = port.ReadAvailable()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSimPortDisconnect(t *testing.T) {
	port := NewSimPort("sim0", nil, 0)
	port.Disconnect()

	_, err := port.ReadAvailable()
	assert.ErrorIs(t, err, ErrDisconnected)

	_, err = port.BytesAvailable()
	assert.ErrorIs(t, err, ErrDisconnected)

	assert.NoError(t, port.Close())
}

func TestSimOpenerRejectsZeroBaud(t *testing.T) {
	dev, err := NewSimDevice(protocol.LegacyProfile(), 0)
	require.NoError(t, err)

	_, err = dev.Opener()(Config{Device: "sim0"})
	assert.ErrorIs(t, err, ErrUnsupportedBaud)
}

func TestSimDeviceSetProfile(t *testing.T) {
	dev, err := NewSimDevice(protocol.LegacyProfile(), 0)
	require.NoError(t, err)
	require.NoError(t, dev.SetProfile(protocol.ReferenceProfile()))

	port, err := dev.Opener()(Config{Device: "sim0", Baud: 9600})
	require.NoError(t, err)

	_, err = port.Write([]byte("A\r\n?\r\n"))
	require.NoError(t, err)

	data, err := port.ReadAvailable()
	require.NoError(t, err)
	assert.Equal(t, "100000", string(data))
}
