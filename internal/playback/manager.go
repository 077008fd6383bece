package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"bastion-panel/internal/audit"
	"bastion-panel/internal/config"
	"bastion-panel/internal/tts"
	"bastion-panel/internal/vox"

	"go.uber.org/zap"
)

var (
	ErrBusy       = errors.New("playback already in progress")
	ErrNotPlaying = errors.New("nothing is playing")
	ErrNoClips    = errors.New("no words matched any clip")
)

// Voice is one joined voice channel. Implementations stream one clip at a
// time; Play must return once the clip finishes or ctx is cancelled.
type Voice interface {
	Speaking(speaking bool) error
	Play(ctx context.Context, clipPath string) error
	Disconnect() error
}

type Connector interface {
	Connect(guildID, channelID string) (Voice, error)
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

type Message struct {
	Kind        string    `json:"kind"`
	Text        string    `json:"text"`
	ChannelID   string    `json:"channel_id"`
	RequestedBy string    `json:"requested_by"`
	StartedAt   time.Time `json:"started_at"`
}

type Snapshot struct {
	Playing bool     `json:"playing"`
	Message *Message `json:"message,omitempty"`
}

type guildState struct {
	playing   bool
	current   *Message
	voice     Voice
	streamCtx context.Context
	cancel    context.CancelFunc
	idleTimer Timer
}

// Manager tracks at most one in-flight voice message per guild. Requests
// against a guild that is already speaking are refused rather than queued
// or overwritten.
type Manager struct {
	cfg       config.PlaybackConfig
	connector Connector
	library   *vox.Library
	tts       *tts.Client
	audit     *audit.Logger
	logger    *zap.Logger
	clock     Clock

	mu     sync.Mutex
	states map[string]*guildState
}

func NewManager(cfg config.PlaybackConfig, connector Connector, library *vox.Library, ttsClient *tts.Client, auditLogger *audit.Logger, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		connector: connector,
		library:   library,
		tts:       ttsClient,
		audit:     auditLogger,
		logger:    logger,
		clock:     realClock{},
		states:    make(map[string]*guildState),
	}
}

func (m *Manager) WithClock(clock Clock) {
	m.clock = clock
}

type VoxResult struct {
	Tokens  []vox.Token `json:"tokens"`
	Matched int         `json:"matched"`
	Skipped int         `json:"skipped"`
}

// PreviewVox tokenizes without touching any voice state.
func (m *Manager) PreviewVox(soundSet, text string) (VoxResult, error) {
	tokens, err := m.library.Tokenize(soundSet, text)
	if err != nil {
		return VoxResult{}, err
	}
	return summarize(tokens), nil
}

// PlayVox tokenizes the message, reserves the guild slot, joins the voice
// channel and streams the matched clips in order. The stream itself runs in
// the background; the returned result describes what will be spoken.
func (m *Manager) PlayVox(ctx context.Context, guildID, channelID, soundSet, text, requestedBy string) (VoxResult, error) {
	tokens, err := m.library.Tokenize(soundSet, text)
	if err != nil {
		return VoxResult{}, err
	}
	clips := vox.MatchedClips(tokens)
	if len(clips) == 0 {
		return VoxResult{}, ErrNoClips
	}

	msg := Message{Kind: "vox", Text: text, ChannelID: channelID, RequestedBy: requestedBy, StartedAt: m.clock.Now()}
	if err := m.begin(guildID, channelID, msg); err != nil {
		return VoxResult{}, err
	}

	m.audit.Log(ctx, audit.LevelInfo, guildID, requestedBy, "", "vox_play",
		fmt.Sprintf("channel=%s words=%d matched=%d", channelID, len(tokens), len(clips)))
	go m.stream(guildID, clips, "")
	return summarize(tokens), nil
}

// PlayTTS reserves the guild slot first, then synthesizes (rate limited per
// guild) and streams the resulting audio file. A busy refusal never charges
// the guild's rate budget. The temp file is removed when the stream ends.
func (m *Manager) PlayTTS(ctx context.Context, guildID, channelID, text, voice, requestedBy string) error {
	msg := Message{Kind: "tts", Text: text, ChannelID: channelID, RequestedBy: requestedBy, StartedAt: m.clock.Now()}
	if err := m.begin(guildID, channelID, msg); err != nil {
		return err
	}

	clipPath, err := m.tts.Synthesize(ctx, guildID, text, voice)
	if err != nil {
		m.release(guildID)
		return err
	}

	m.audit.Log(ctx, audit.LevelInfo, guildID, requestedBy, "", "tts_play",
		fmt.Sprintf("channel=%s chars=%d", channelID, len(text)))
	go m.stream(guildID, []string{clipPath}, clipPath)
	return nil
}

func (m *Manager) Stop(ctx context.Context, guildID, requestedBy string) error {
	m.mu.Lock()
	state := m.states[guildID]
	if state == nil || !state.playing {
		m.mu.Unlock()
		return ErrNotPlaying
	}
	cancel := state.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.audit.Log(ctx, audit.LevelInfo, guildID, requestedBy, "", "playback_stop", "")
	return nil
}

func (m *Manager) Status(guildID string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.states[guildID]
	if state == nil || !state.playing || state.current == nil {
		return Snapshot{}
	}
	msg := *state.current
	return Snapshot{Playing: true, Message: &msg}
}

// begin reserves the guild slot and joins the channel. On any error the
// slot is released so the guild is never left stuck in "playing".
func (m *Manager) begin(guildID, channelID string, msg Message) error {
	m.mu.Lock()
	state := m.states[guildID]
	if state == nil {
		state = &guildState{}
		m.states[guildID] = state
	}
	if state.playing {
		m.mu.Unlock()
		return ErrBusy
	}
	if state.idleTimer != nil {
		state.idleTimer.Stop()
		state.idleTimer = nil
	}
	state.playing = true
	state.current = &msg
	// The cancel func goes in under the same lock as the reservation, so a
	// Stop racing the connect still aborts the stream instead of a no-op.
	streamCtx, cancel := context.WithCancel(context.Background())
	state.streamCtx = streamCtx
	state.cancel = cancel
	voice := state.voice
	m.mu.Unlock()

	if voice == nil {
		joined, err := m.connector.Connect(guildID, channelID)
		if err != nil {
			m.release(guildID)
			return fmt.Errorf("voice connect: %w", err)
		}
		voice = joined
	}

	m.mu.Lock()
	state.voice = voice
	m.mu.Unlock()
	return nil
}

func (m *Manager) stream(guildID string, clips []string, tempFile string) {
	m.mu.Lock()
	state := m.states[guildID]
	if state == nil || state.voice == nil {
		m.mu.Unlock()
		return
	}
	voice := state.voice
	ctx := state.streamCtx
	m.mu.Unlock()

	if err := voice.Speaking(true); err != nil {
		m.logger.Warn("speaking on failed", zap.String("guild_id", guildID), zap.Error(err))
	}

	for _, clip := range clips {
		if ctx.Err() != nil {
			break
		}
		if err := voice.Play(ctx, clip); err != nil {
			if !errors.Is(err, context.Canceled) {
				m.logger.Warn("clip stream failed",
					zap.String("guild_id", guildID),
					zap.String("clip", clip),
					zap.Error(err))
			}
			break
		}
	}

	if err := voice.Speaking(false); err != nil {
		m.logger.Warn("speaking off failed", zap.String("guild_id", guildID), zap.Error(err))
	}
	if tempFile != "" {
		_ = os.Remove(tempFile)
	}
	m.release(guildID)
}

// release clears the playing state and arms the idle-disconnect timer. The
// voice connection is kept so back-to-back messages skip the rejoin.
func (m *Manager) release(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.states[guildID]
	if state == nil {
		return
	}
	if state.cancel != nil {
		state.cancel()
		state.cancel = nil
	}
	state.playing = false
	state.current = nil
	state.streamCtx = nil

	idle := time.Duration(m.cfg.IdleDisconnectSeconds) * time.Second
	if idle <= 0 {
		idle = 2 * time.Minute
	}
	if state.voice != nil {
		if state.idleTimer != nil {
			state.idleTimer.Stop()
		}
		state.idleTimer = m.clock.AfterFunc(idle, func() { m.disconnectIfIdle(guildID) })
	}
}

func (m *Manager) disconnectIfIdle(guildID string) {
	m.mu.Lock()
	state := m.states[guildID]
	if state == nil || state.playing || state.voice == nil {
		m.mu.Unlock()
		return
	}
	voice := state.voice
	state.voice = nil
	state.idleTimer = nil
	m.mu.Unlock()

	if err := voice.Disconnect(); err != nil {
		m.logger.Warn("voice disconnect failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func summarize(tokens []vox.Token) VoxResult {
	result := VoxResult{Tokens: tokens}
	for _, token := range tokens {
		if token.Matched {
			result.Matched++
		} else {
			result.Skipped++
		}
	}
	return result
}
