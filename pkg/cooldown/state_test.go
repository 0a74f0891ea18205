package cooldown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysFor(t *testing.T) {
	k := KeysFor("CONFIRM_EMAIL")
	assert.Equal(t, []string{
		"ATTEMPTS_CONFIRM_EMAIL",
		"COOLDOWN_CONFIRM_EMAIL",
		"COOLDOWN_ENABLED_CONFIRM_EMAIL",
		"LAST_UPDATE_CONFIRM_EMAIL",
		"RESEND_CODE_ENABLED_CONFIRM_EMAIL",
		"RESEND_CODE_INDEX_CONFIRM_EMAIL",
		"TIMER_CONFIRM_EMAIL",
	}, k.All())
}

func TestEncodeUsesJSONPrimitives(t *testing.T) {
	k := KeysFor("X")
	got := State{
		Attempts:          2,
		ResendCodeIndex:   2,
		Timer:             12.5,
		Cooldown:          0,
		CooldownEnabled:   false,
		ResendCodeEnabled: true,
	}.encode(k)

	assert.Equal(t, map[string]string{
		"ATTEMPTS_X":            "2",
		"RESEND_CODE_INDEX_X":   "2",
		"TIMER_X":               "12.5",
		"COOLDOWN_X":            "0",
		"COOLDOWN_ENABLED_X":    "false",
		"RESEND_CODE_ENABLED_X": "true",
	}, got)
}

func TestStateTick(t *testing.T) {
	cfg := Config{InstanceKey: "X"}.WithDefaults()

	tests := []struct {
		name string
		in   State
		want State
	}{
		{
			name: "timer counting",
			in:   State{Attempts: 1, ResendCodeIndex: 1, Timer: 2},
			want: State{Attempts: 1, ResendCodeIndex: 1, Timer: 1},
		},
		{
			name: "timer reaches zero",
			in:   State{Attempts: 1, ResendCodeIndex: 1, Timer: 1},
			want: State{Attempts: 1, ResendCodeIndex: 1, ResendCodeEnabled: true},
		},
		{
			name: "fractional timer floors at zero",
			in:   State{Attempts: 2, ResendCodeIndex: 2, Timer: 0.4},
			want: State{Attempts: 2, ResendCodeIndex: 2, ResendCodeEnabled: true},
		},
		{
			name: "cooldown counting",
			in:   State{Attempts: 3, ResendCodeIndex: 2, Cooldown: 10, CooldownEnabled: true},
			want: State{Attempts: 3, ResendCodeIndex: 2, Cooldown: 9, CooldownEnabled: true},
		},
		{
			name: "cooldown expires",
			in:   State{Attempts: 3, ResendCodeIndex: 2, Cooldown: 1, CooldownEnabled: true},
			want: State{Attempts: 1, ResendCodeIndex: 1, ResendCodeEnabled: true},
		},
		{
			name: "idle",
			in:   State{Attempts: 2, ResendCodeIndex: 2, ResendCodeEnabled: true},
			want: State{Attempts: 2, ResendCodeIndex: 2, ResendCodeEnabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.in
			s.tick(cfg)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestStateElapse(t *testing.T) {
	cfg := Config{InstanceKey: "X"}.WithDefaults()

	s := State{Attempts: 2, ResendCodeIndex: 2, Timer: 120}
	s.elapse(30, cfg)
	assert.Equal(t, 90.0, s.Timer)
	assert.False(t, s.ResendCodeEnabled)

	s.elapse(500, cfg)
	assert.Equal(t, 0.0, s.Timer)
	assert.True(t, s.ResendCodeEnabled)

	// 时钟回拨不增加剩余时间
	s = State{Attempts: 1, ResendCodeIndex: 1, Timer: 60}
	s.elapse(-10, cfg)
	assert.Equal(t, 60.0, s.Timer)
}

func TestSettleCooldownEnd(t *testing.T) {
	cfg := Config{InstanceKey: "X"}.WithDefaults()

	// 次数未用完：只关闭冷却开关，不重置计数
	s := State{Attempts: 2, ResendCodeIndex: 2, Timer: 30, CooldownEnabled: true}
	s.settle(cfg)
	assert.False(t, s.CooldownEnabled)
	assert.False(t, s.ResendCodeEnabled)
	assert.Equal(t, 2, s.Attempts)
	assert.Equal(t, 30.0, s.Timer)

	// 次数用完：完整重置
	s = State{Attempts: 3, ResendCodeIndex: 3, CooldownEnabled: true}
	s.settle(cfg)
	assert.Equal(t, State{Attempts: 1, ResendCodeIndex: 1, ResendCodeEnabled: true}, s)
}

func TestElapsedSecondsRounds(t *testing.T) {
	assert.Equal(t, 55.0, elapsedSeconds(100_000, 45_000))
	assert.Equal(t, 2.0, elapsedSeconds(2_499, 0))
	assert.Equal(t, 3.0, elapsedSeconds(2_500, 0))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{InstanceKey: "X"}.WithDefaults()
	assert.Equal(t, []float64{60, 120, 300}, cfg.InitialTimers)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 3600.0, cfg.CooldownPeriod)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 300.0, cfg.timerAt(7))
	assert.Equal(t, 60.0, cfg.timerAt(-1))
}

func TestHeartbeatFor(t *testing.T) {
	h, err := HeartbeatFor("web")
	require.NoError(t, err)
	assert.True(t, h.StampOnSave())

	h, err = HeartbeatFor("")
	require.NoError(t, err)
	assert.False(t, h.StampOnSave())

	_, err = HeartbeatFor("tvos")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
