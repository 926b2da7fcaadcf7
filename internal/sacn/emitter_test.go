package sacn

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vaspar/followspot/internal/assembler"
)

func TestEmitter_SequenceNumbersAreMonotonicPerUniverse(t *testing.T) {
	sender, err := Dial(nil)
	require.NoError(t, err)
	defer sender.Close()

	e := NewEmitter(sender, uuid.New(), 100)
	buf := &assembler.UniverseBuffer{Universe: 1, Dirty: true}

	now := time.Now()
	for i := 0; i < 3; i++ {
		e.Tick(now, []*assembler.UniverseBuffer{buf}, func(int) Destination {
			return Destination{Universe: 1, Unicast: "127.0.0.1"}
		})
		buf.Dirty = true
		now = now.Add(time.Millisecond)
	}
	require.Equal(t, uint8(3), e.states[1].seq)
}

func TestEmitter_SendsKeepaliveWithoutDirtyBit(t *testing.T) {
	sender, err := Dial(nil)
	require.NoError(t, err)
	defer sender.Close()

	e := NewEmitter(sender, uuid.New(), 100)
	buf := &assembler.UniverseBuffer{Universe: 1}
	dest := func(int) Destination { return Destination{Universe: 1, Unicast: "127.0.0.1"} }

	now := time.Now()
	e.Tick(now, []*assembler.UniverseBuffer{buf}, dest)
	require.Equal(t, uint8(1), e.states[1].seq, "first tick always sends regardless of dirty")

	e.Tick(now.Add(100*time.Millisecond), []*assembler.UniverseBuffer{buf}, dest)
	require.Equal(t, uint8(1), e.states[1].seq, "within the keepalive window, a clean buffer is skipped")

	e.Tick(now.Add(2*time.Second), []*assembler.UniverseBuffer{buf}, dest)
	require.Equal(t, uint8(2), e.states[1].seq, "past the keepalive window, a clean buffer is resent")
}

func TestEmitter_Forget_DropsUniverseState(t *testing.T) {
	sender, err := Dial(nil)
	require.NoError(t, err)
	defer sender.Close()

	e := NewEmitter(sender, uuid.New(), 100)
	buf := &assembler.UniverseBuffer{Universe: 1, Dirty: true}
	e.Tick(time.Now(), []*assembler.UniverseBuffer{buf}, func(int) Destination { return Destination{Universe: 1, Unicast: "127.0.0.1"} })
	require.Contains(t, e.states, 1)

	e.Forget(1)
	require.NotContains(t, e.states, 1)
}
